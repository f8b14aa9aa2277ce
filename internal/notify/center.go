package notify

import (
	"sync"

	"github.com/dmdmdm-nz/reachd/internal/dispatch"
)

// Notification is a named, loosely typed broadcast.
type Notification struct {
	Name   string
	Sender any
	Info   map[string]any
}

// Center is a string-keyed broadcast hub for consumers that want every
// notification of a given name regardless of which component posted it.
// Each name is backed by its own Bus.
type Center struct {
	discipline *dispatch.Discipline

	mu    sync.Mutex
	buses map[string]*Bus[Notification]
	names map[Token]string
}

// NewCenter returns a center delivering on e, or on dispatch.Main() when e
// is nil.
func NewCenter(e dispatch.Executor) *Center {
	return &Center{
		discipline: dispatch.NewDiscipline(e),
		buses:      make(map[string]*Bus[Notification]),
		names:      make(map[Token]string),
	}
}

var defaultCenter = sync.OnceValue(func() *Center { return NewCenter(nil) })

// Default returns the process-wide center.
func Default() *Center {
	return defaultCenter()
}

// AddObserver calls handler for every notification posted under name.
func (c *Center) AddObserver(name string, handler func(Notification), opts ...SubscribeOption) Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	bus, ok := c.buses[name]
	if !ok {
		bus = NewBus[Notification](c.discipline)
		c.buses[name] = bus
	}
	token := bus.Subscribe(handler, opts...)
	c.names[token] = name
	return token
}

// RemoveObserver detaches the observer registered under token.
func (c *Center) RemoveObserver(token Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.names[token]
	if !ok {
		return false
	}
	delete(c.names, token)
	return c.buses[name].Unsubscribe(token)
}

// Post delivers n to the observers of n.Name. Posting a name nobody observes
// is a no-op.
func (c *Center) Post(n Notification) {
	c.mu.Lock()
	bus := c.buses[n.Name]
	c.mu.Unlock()
	if bus != nil {
		bus.Publish(n)
	}
}

// Observers returns how many observers are registered for name.
func (c *Center) Observers(name string) int {
	c.mu.Lock()
	bus := c.buses[name]
	c.mu.Unlock()
	if bus == nil {
		return 0
	}
	return bus.Len()
}
