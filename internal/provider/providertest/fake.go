// Package providertest supplies a scriptable provider for tests.
package providertest

import (
	"sync"

	"github.com/dmdmdm-nz/reachd/internal/provider"
)

// Fake is both a provider.Factory and the provider.Provider it hands out.
// Tests set the error fields before use and drive callbacks with Emit.
type Fake struct {
	StartErr        error
	FlagsErr        error
	StopErr         error
	DefaultRouteErr error
	HostNameErr     error

	mu        sync.Mutex
	flags     provider.Flags
	callback  func(provider.Flags)
	started   bool
	stopped   bool
	hostNames []string
	stopCalls int

	// Emit holds the read side; Stop takes the write side to wait for
	// in-flight callbacks.
	emitMu sync.RWMutex
}

func New(initial provider.Flags) *Fake {
	return &Fake{flags: initial}
}

func (f *Fake) ForDefaultRoute() (provider.Provider, error) {
	if f.DefaultRouteErr != nil {
		return nil, f.DefaultRouteErr
	}
	return f, nil
}

func (f *Fake) ForHostName(name string) (provider.Provider, error) {
	f.mu.Lock()
	f.hostNames = append(f.hostNames, name)
	f.mu.Unlock()
	if f.HostNameErr != nil {
		return nil, f.HostNameErr
	}
	return f, nil
}

func (f *Fake) SetCallback(fn func(provider.Flags)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callback = fn
}

func (f *Fake) Flags() (provider.Flags, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FlagsErr != nil {
		return 0, f.FlagsErr
	}
	return f.flags, nil
}

func (f *Fake) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	if f.started {
		return provider.ErrAlreadyStarted
	}
	f.started = true
	return nil
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	f.stopped = true
	f.stopCalls++
	f.mu.Unlock()

	f.emitMu.Lock()
	f.emitMu.Unlock()
	return f.StopErr
}

// Set changes the flags returned by Flags without invoking the callback.
func (f *Fake) Set(flags provider.Flags) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags = flags
}

// Emit sets the current flags and invokes the callback synchronously. It
// does nothing once Stop has been called.
func (f *Fake) Emit(flags provider.Flags) {
	f.emitMu.RLock()
	defer f.emitMu.RUnlock()

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.flags = flags
	cb := f.callback
	f.mu.Unlock()

	if cb != nil {
		cb(flags)
	}
}

// EmitUnchecked invokes the callback even after Stop, simulating a provider
// that races its own teardown.
func (f *Fake) EmitUnchecked(flags provider.Flags) {
	f.mu.Lock()
	cb := f.callback
	f.mu.Unlock()
	if cb != nil {
		cb(flags)
	}
}

func (f *Fake) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *Fake) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *Fake) StopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

func (f *Fake) HostNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hostNames...)
}
