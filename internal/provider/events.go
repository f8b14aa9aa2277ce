package provider

type EventKind string

const (
	LinkChanged  EventKind = "LINK_CHANGED"
	AddrChanged  EventKind = "ADDR_CHANGED"
	RouteChanged EventKind = "ROUTE_CHANGED"
	Tick         EventKind = "TICK"
)

// ChangeEvent tells a provider that routing state may have changed.
type ChangeEvent struct {
	Kind      EventKind
	Interface string
}
