package provider

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultResolveInterval is how often a resolved host is looked up
	// again. It outlives the resolver cache so each refresh reaches DNS.
	DefaultResolveInterval = defaultCacheTTL + time.Second

	resolveRetryMin = time.Second
	resolveRetryMax = time.Minute
)

// HostResolver maps a host name to its addresses.
type HostResolver interface {
	Lookup(ctx context.Context, host string) ([]net.IP, error)
}

// routingProvider re-evaluates a target whenever its watcher reports a
// change. An empty host tracks the default route.
type routingProvider struct {
	host     string
	watcher  Watcher
	eval     Evaluator
	resolver HostResolver
	clock    clock.Clock
	interval time.Duration

	mu       sync.Mutex
	callback func(Flags)
	started  bool
	stopped  bool
	addrs    []net.IP
	last     Flags
	haveLast bool

	// Held for the whole of one evaluate-and-deliver pass.
	deliverMu sync.Mutex

	// Wakes the resolve loop ahead of its timer.
	kick chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newRoutingProvider(host string, watcher Watcher, eval Evaluator, resolver HostResolver, clk clock.Clock) *routingProvider {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &routingProvider{
		host:     host,
		watcher:  watcher,
		eval:     eval,
		resolver: resolver,
		clock:    clk,
		interval: DefaultResolveInterval,
		kick:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *routingProvider) target() string {
	if p.host == "" {
		return "default"
	}
	return p.host
}

func (p *routingProvider) SetCallback(fn func(Flags)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callback = fn
}

func (p *routingProvider) Start() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	if err := p.watcher.Open(p.handleEvent); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	log.WithField("target", p.target()).Debug("Provider started")

	if p.host != "" {
		p.mu.Lock()
		if !p.stopped {
			p.wg.Add(1)
			go p.resolveLoop()
		}
		p.mu.Unlock()
	}
	return nil
}

// Flags evaluates the target synchronously.
func (p *routingProvider) Flags() (Flags, error) {
	f, err := p.evaluate()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	p.mu.Lock()
	p.last, p.haveLast = f, true
	p.mu.Unlock()
	return f, nil
}

func (p *routingProvider) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	p.cancel()
	var err error
	if started {
		err = p.watcher.Close()
	}
	p.wg.Wait()

	// Wait out a delivery that passed the stopped check.
	p.deliverMu.Lock()
	p.deliverMu.Unlock()

	log.WithField("target", p.target()).Debug("Provider stopped")
	return err
}

func (p *routingProvider) handleEvent(ev ChangeEvent) {
	if p.host != "" {
		p.mu.Lock()
		unresolved := len(p.addrs) == 0
		p.mu.Unlock()
		if unresolved {
			p.resolveNow()
		}
	}
	// Ticks only matter when something changed; routing events are always
	// reported so observers can re-confirm state.
	p.deliver(ev.Kind == Tick)
}

// resolveNow wakes the resolve loop without waiting for its timer.
func (p *routingProvider) resolveNow() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// resolveLoop looks the host up immediately, then again every interval.
// Failed lookups are retried with exponential backoff.
func (p *routingProvider) resolveLoop() {
	defer p.wg.Done()

	backoff := resolveRetryMin
	for {
		wait := p.interval
		if !p.resolveOnce() {
			wait = backoff
			backoff = min(backoff*2, resolveRetryMax)
		} else {
			backoff = resolveRetryMin
		}

		timer := p.clock.Timer(wait)
		select {
		case <-p.ctx.Done():
			timer.Stop()
			return
		case <-p.kick:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (p *routingProvider) resolveOnce() bool {
	addrs, err := p.resolver.Lookup(p.ctx, p.host)
	if err != nil {
		if p.ctx.Err() == nil {
			log.WithField("host", p.host).WithError(err).Warn("Failed to resolve host")
		}
		return false
	}

	p.mu.Lock()
	first := len(p.addrs) == 0
	changed := !slices.EqualFunc(p.addrs, addrs, net.IP.Equal)
	p.addrs = addrs
	p.mu.Unlock()

	if changed {
		log.WithFields(log.Fields{
			"host":      p.host,
			"addresses": addrs,
		}).Debug("Host resolved")
	}
	// The first answer is always reported; later ones only on change.
	p.deliver(!first)
	return true
}

func (p *routingProvider) evaluate() (Flags, error) {
	if p.host == "" {
		return p.eval.DefaultRoute()
	}
	p.mu.Lock()
	addrs := p.addrs
	p.mu.Unlock()
	if len(addrs) == 0 {
		return 0, nil
	}
	return p.eval.Host(addrs)
}

func (p *routingProvider) deliver(coalesce bool) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	cb := p.callback
	p.mu.Unlock()

	f, err := p.evaluate()
	if err != nil {
		log.WithField("target", p.target()).WithError(err).Warn("Failed to evaluate reachability")
		return
	}

	p.mu.Lock()
	changed := !p.haveLast || p.last != f
	p.last, p.haveLast = f, true
	p.mu.Unlock()

	if coalesce && !changed {
		return
	}
	log.WithFields(log.Fields{
		"target": p.target(),
		"flags":  f.String(),
	}).Trace("Delivering flags")
	if cb != nil {
		cb(f)
	}
}
