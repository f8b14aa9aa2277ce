package reachability

import (
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dmdmdm-nz/reachd/internal/dispatch"
	"github.com/dmdmdm-nz/reachd/internal/notify"
	"github.com/dmdmdm-nz/reachd/internal/provider"
	"github.com/dmdmdm-nz/reachd/internal/runtime"
)

// Monitor tracks the reachability of one target.
type Monitor struct {
	target     Target
	discipline *dispatch.Discipline
	suppress   bool
	center     *notify.Center
	metrics    *Metrics
	bus        *notify.Bus[Snapshot]

	current atomic.Pointer[Snapshot]

	// mu serializes construction, the callback path and teardown.
	mu       sync.Mutex
	state    State
	provider provider.Provider
	updates  map[notify.Token]*runtime.SubQueue[Snapshot]
}

// NewDefaultRoute monitors general internet reachability.
func NewDefaultRoute(factory provider.Factory, opts ...Option) (*Monitor, error) {
	return newMonitor(factory, Target{Kind: DefaultRoute}, opts)
}

// NewHostName monitors reachability of a named host. The host is resolved
// asynchronously, so the first snapshot usually reports it unreachable.
func NewHostName(factory provider.Factory, host string, opts ...Option) (*Monitor, error) {
	if !provider.ValidHostName(host) {
		return nil, fmt.Errorf("%w: %w: %q", ErrProviderUnavailable, ErrInvalidTarget, host)
	}
	return newMonitor(factory, Target{Kind: HostName, Host: host}, opts)
}

func newMonitor(factory provider.Factory, target Target, opts []Option) (*Monitor, error) {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}

	m := &Monitor{
		target:     target,
		discipline: dispatch.NewDiscipline(cfg.executor),
		suppress:   cfg.suppressDups,
		center:     cfg.center,
		metrics:    cfg.metrics,
		state:      StateUninitialized,
		updates:    make(map[notify.Token]*runtime.SubQueue[Snapshot]),
	}
	m.bus = notify.NewBus[Snapshot](m.discipline, notify.WithDeliveryHook(m.metrics.deliveryHook(target.String())))

	var p provider.Provider
	var err error
	if target.Kind == DefaultRoute {
		p, err = factory.ForDefaultRoute()
	} else {
		p, err = factory.ForHostName(target.Host)
	}
	if err != nil {
		m.bus.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, target, err)
	}

	if err := m.start(p); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"target": target.String(),
		"status": m.Current().Status().String(),
	}).Info("Reachability monitor started")
	return m, nil
}

// start registers with p and seeds the cache while holding mu, so callbacks
// that race construction apply after the seed.
func (m *Monitor) start(p provider.Provider) error {
	m.mu.Lock()
	m.provider = p
	p.SetCallback(m.handleFlags)

	if err := p.Start(); err != nil {
		return m.abort(fmt.Errorf("start provider: %w", err))
	}
	raw, err := p.Flags()
	if err != nil {
		return m.abort(fmt.Errorf("read initial flags: %w", err))
	}

	seed := NewSnapshot(raw)
	m.current.Store(&seed)
	m.metrics.observe(m.target.String(), seed)
	m.transition(StateActive)
	m.mu.Unlock()
	return nil
}

// abort unwinds a failed construction. Called with mu held; releases it
// before stopping the provider.
func (m *Monitor) abort(cause error) error {
	m.transition(StateStopped)
	p := m.provider
	m.mu.Unlock()

	if err := p.Stop(); err != nil {
		log.WithField("target", m.target.String()).WithError(err).Debug("Failed to stop provider after aborted start")
	}
	m.bus.Close()
	return fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, m.target, cause)
}

func (m *Monitor) transition(next State) {
	if !m.state.canTransitionTo(next) {
		log.WithFields(log.Fields{
			"target": m.target.String(),
			"from":   m.state,
			"to":     next,
		}).Error("Invalid monitor state transition")
		return
	}
	m.state = next
}

func (m *Monitor) handleFlags(raw provider.Flags) {
	target := m.target.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.callback(target)
	if m.state != StateActive {
		m.metrics.discard(target, discardStopped)
		log.WithField("target", target).Debug("Discarding callback for stopped monitor")
		return
	}

	prev := m.current.Load()
	if m.suppress && prev != nil && prev.Flags() == raw {
		m.metrics.discard(target, discardDuplicate)
		return
	}

	snap := NewSnapshot(raw)
	m.current.Store(&snap)
	m.metrics.observe(target, snap)

	fields := log.Fields{
		"target": target,
		"flags":  raw.String(),
		"status": snap.Status().String(),
	}
	if prev == nil || prev.Flags() != raw {
		log.WithFields(fields).Info("Reachability changed")
	} else {
		log.WithFields(fields).Debug("Reachability confirmed")
	}

	m.bus.Publish(snap)
	m.broadcast(snap)
}

// Close stops the provider and invalidates every subscription. It waits for
// a handler that is running and discards queued deliveries. Close must not
// be called from one of this monitor's handlers.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return nil
	}
	m.transition(StateStopped)
	p := m.provider
	updates := m.updates
	m.updates = nil
	m.mu.Unlock()

	var err error
	if p != nil {
		if stopErr := p.Stop(); stopErr != nil {
			err = multierr.Append(err, fmt.Errorf("stop provider: %w", stopErr))
		}
	}
	m.bus.Close()
	for _, sq := range updates {
		sq.Close()
	}
	m.metrics.forget(m.target.String())

	log.WithField("target", m.target.String()).Info("Reachability monitor stopped")
	return err
}

// Snapshot returns the cached snapshot. ok is false before the first
// snapshot was stored.
func (m *Monitor) Snapshot() (s Snapshot, ok bool) {
	p := m.current.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// Current returns the cached snapshot or the zero (unreachable) one.
func (m *Monitor) Current() Snapshot {
	s, _ := m.Snapshot()
	return s
}

func (m *Monitor) Reachable() bool        { return m.Current().Reachable() }
func (m *Monitor) ReachableViaWWAN() bool { return m.Current().ReachableViaWWAN() }
func (m *Monitor) ReachableViaWiFi() bool { return m.Current().ReachableViaWiFi() }
func (m *Monitor) Flags() provider.Flags  { return m.Current().Flags() }

// Subscribe registers handler for every published snapshot. After Close it
// returns the zero Token.
func (m *Monitor) Subscribe(handler func(Snapshot), opts ...notify.SubscribeOption) notify.Token {
	return m.bus.Subscribe(handler, opts...)
}

func (m *Monitor) Unsubscribe(token notify.Token) bool {
	return m.bus.Unsubscribe(token)
}

// Updates returns a channel that yields the current snapshot followed by
// every published one. The channel is closed by the returned cancel func or
// by Close.
func (m *Monitor) Updates() (<-chan Snapshot, func()) {
	sq := runtime.NewSubQueue[Snapshot](8)
	inline := dispatch.ExecutorFunc(func(task func()) { task() })

	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		sq.Close()
		return sq.Chan(), func() {}
	}
	token := m.bus.Subscribe(func(s Snapshot) { sq.Enqueue(s) }, notify.OnExecutor(inline))
	m.updates[token] = sq
	// Close can only reach sq once m.mu is released, so seed it first.
	// The channel is fresh and buffered, so this never blocks.
	if current, ok := m.Snapshot(); ok {
		sq.OutOfBandSnapshotSend(current)
	}
	m.mu.Unlock()

	sq.SetPaused(false)

	cancel := func() {
		m.bus.Unsubscribe(token)
		m.mu.Lock()
		_, live := m.updates[token]
		delete(m.updates, token)
		m.mu.Unlock()
		if live {
			sq.Close()
		}
	}
	return sq.Chan(), cancel
}

// Executor returns where notifications are currently delivered.
func (m *Monitor) Executor() dispatch.Executor {
	return m.discipline.Executor()
}

// SetExecutor redirects later notifications to e; nil restores the main
// queue. Deliveries already queued keep their executor.
func (m *Monitor) SetExecutor(e dispatch.Executor) {
	m.discipline.Set(e)
}

func (m *Monitor) Target() Target { return m.target }

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) String() string {
	return fmt.Sprintf("Monitor(%s)", m.target)
}
