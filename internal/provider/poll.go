package provider

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

// PollWatcher emits a Tick event on a fixed interval. It backs platforms
// without an event-driven routing feed.
type PollWatcher struct {
	clock    clock.Clock
	interval time.Duration

	mu     sync.Mutex
	stop   chan struct{}
	wg     sync.WaitGroup
	opened bool
}

func NewPollWatcher(clk clock.Clock, interval time.Duration) *PollWatcher {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollWatcher{clock: clk, interval: interval}
}

func (w *PollWatcher) Open(callback func(ChangeEvent)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.opened {
		return ErrAlreadyStarted
	}
	w.opened = true
	w.stop = make(chan struct{})

	ticker := w.clock.Ticker(w.interval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		log.WithField("interval", w.interval).Debug("Poll watcher started")
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				callback(ChangeEvent{Kind: Tick})
			}
		}
	}()
	return nil
}

func (w *PollWatcher) Close() error {
	w.mu.Lock()
	if !w.opened || w.stop == nil {
		w.mu.Unlock()
		return nil
	}
	stop := w.stop
	w.stop = nil
	w.mu.Unlock()

	close(stop)
	w.wg.Wait()
	return nil
}
