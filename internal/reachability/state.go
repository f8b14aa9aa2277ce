package reachability

type State string

const (
	StateUninitialized State = "uninitialized"
	StateActive        State = "active"
	StateStopped       State = "stopped"
)

func (s State) canTransitionTo(next State) bool {
	switch s {
	case StateUninitialized:
		return next == StateActive || next == StateStopped
	case StateActive:
		return next == StateStopped
	default:
		return false
	}
}
