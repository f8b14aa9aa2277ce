// Package provider produces raw reachability flags for a target and reports
// changes through a callback.
//
// The reachability package treats a Provider as an opaque event source. The
// implementations here watch the host's routing state (netlink on Linux, a
// routing socket on darwin, polling elsewhere) and evaluate flags whenever it
// changes.
package provider

import "errors"

var (
	ErrUnavailable        = errors.New("reachability provider unavailable")
	ErrStopped            = errors.New("provider stopped")
	ErrAlreadyStarted     = errors.New("provider already started")
	ErrUnsupportedWatcher = errors.New("watcher not supported on this platform")
	ErrInvalidHostName    = errors.New("invalid host name")
)

// Provider tracks one target.
//
// SetCallback must be called before Start. Callbacks are invoked one at a
// time from a goroutine owned by the provider. Once Stop returns no further
// callback is invoked.
type Provider interface {
	SetCallback(fn func(Flags))
	Flags() (Flags, error)
	Start() error
	Stop() error
}

// Factory creates providers for the two kinds of target.
type Factory interface {
	ForDefaultRoute() (Provider, error)
	ForHostName(name string) (Provider, error)
}
