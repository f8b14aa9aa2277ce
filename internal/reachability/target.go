package reachability

type TargetKind int

const (
	DefaultRoute TargetKind = iota
	HostName
)

// DefaultRouteName is how the default-route target is named in logs,
// metrics and the API.
const DefaultRouteName = "default"

// Target identifies what a Monitor watches. It is fixed at construction.
type Target struct {
	Kind TargetKind
	Host string
}

func (t Target) String() string {
	if t.Kind == DefaultRoute {
		return DefaultRouteName
	}
	return t.Host
}
