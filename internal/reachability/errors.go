package reachability

import "errors"

var (
	// ErrProviderUnavailable is returned when a monitor cannot be built:
	// the target could not be resolved or registered, or the initial
	// flags could not be read. The underlying cause is wrapped alongside.
	ErrProviderUnavailable = errors.New("reachability provider unavailable")

	ErrInvalidTarget = errors.New("invalid reachability target")
)
