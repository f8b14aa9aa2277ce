// Package notify fans values out to subscribers through dispatch executors.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dmdmdm-nz/reachd/internal/dispatch"
)

// Token identifies one subscription. The zero Token never matches.
type Token uuid.UUID

func (t Token) String() string { return uuid.UUID(t).String() }

func (t Token) IsZero() bool { return t == Token{} }

type subscribeConfig struct {
	executor dispatch.Executor
}

type SubscribeOption func(*subscribeConfig)

// OnExecutor pins a subscription to e instead of the bus discipline.
func OnExecutor(e dispatch.Executor) SubscribeOption {
	return func(c *subscribeConfig) { c.executor = e }
}

type busConfig struct {
	hook func(delivered bool)
}

type BusOption func(*busConfig)

// WithDeliveryHook reports, for every scheduled delivery, whether the handler
// ran or the delivery was discarded.
func WithDeliveryHook(fn func(delivered bool)) BusOption {
	return func(c *busConfig) { c.hook = fn }
}

type subscription[T any] struct {
	token    Token
	handler  func(T)
	executor dispatch.Executor
	active   atomic.Bool
}

// Bus delivers published values to every subscriber. Publishes issued in
// sequence reach each subscriber in that sequence as long as its executor is
// FIFO; nothing is promised across subscribers.
type Bus[T any] struct {
	discipline *dispatch.Discipline
	hook       func(bool)

	mu     sync.Mutex
	subs   map[Token]*subscription[T]
	closed atomic.Bool

	// Held shared while a handler runs; Close takes it exclusively to wait
	// for the running handler.
	gate sync.RWMutex
}

func NewBus[T any](discipline *dispatch.Discipline, opts ...BusOption) *Bus[T] {
	cfg := busConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if discipline == nil {
		discipline = dispatch.NewDiscipline(nil)
	}
	return &Bus[T]{
		discipline: discipline,
		hook:       cfg.hook,
		subs:       make(map[Token]*subscription[T]),
	}
}

// Subscribe registers handler. On a closed bus it returns the zero Token and
// handler is never called.
func (b *Bus[T]) Subscribe(handler func(T), opts ...SubscribeOption) Token {
	cfg := subscribeConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return Token{}
	}
	sub := &subscription[T]{
		token:    Token(uuid.New()),
		handler:  handler,
		executor: cfg.executor,
	}
	sub.active.Store(true)
	b.subs[sub.token] = sub
	return sub.token
}

// Unsubscribe removes the subscription. Once it returns the handler is not
// started again, including for deliveries that were already queued.
func (b *Bus[T]) Unsubscribe(token Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[token]
	if !ok {
		return false
	}
	sub.active.Store(false)
	delete(b.subs, token)
	return true
}

// Publish schedules v for every current subscriber and returns without
// waiting. Subscribers added while Publish runs do not receive v.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return
	}
	subs := make([]*subscription[T], 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	// One read of the discipline per publish.
	fallback := b.discipline.Executor()
	for _, s := range subs {
		e := s.executor
		if e == nil {
			e = fallback
		}
		e.Submit(b.deliveryFor(s, v))
	}
}

// Len returns the number of live subscriptions.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close invalidates every subscription and waits for a handler that is
// currently running. Queued deliveries are discarded. Close must not be
// called from inside one of this bus's handlers.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	if b.closed.Swap(true) {
		b.mu.Unlock()
		return
	}
	for token, s := range b.subs {
		s.active.Store(false)
		delete(b.subs, token)
	}
	b.mu.Unlock()

	// Wait out a running handler.
	b.gate.Lock()
	b.gate.Unlock()
}

func (b *Bus[T]) deliveryFor(s *subscription[T], v T) func() {
	return func() {
		b.gate.RLock()
		defer b.gate.RUnlock()
		if b.closed.Load() || !s.active.Load() {
			b.report(false)
			return
		}
		s.handler(v)
		b.report(true)
	}
}

func (b *Bus[T]) report(delivered bool) {
	if b.hook != nil {
		b.hook(delivered)
	}
}
