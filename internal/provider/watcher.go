package provider

// Watcher monitors the host for routing changes using platform-specific
// event mechanisms (netlink on Linux, route sockets on macOS) or a ticker.
type Watcher interface {
	// Open establishes the subscription and returns once it is live. Events
	// are delivered to callback from a single goroutine.
	Open(callback func(ChangeEvent)) error

	// Close tears the subscription down. No callback runs after it returns.
	Close() error
}
