package runtime

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type worker struct {
	name   string
	run    func(context.Context) error
	closeF func() error
}

// Supervisor runs named workers until the context ends, then closes them in
// reverse registration order.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
	started int
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

func (s *Supervisor) Add(name string, run func(context.Context) error, closeF func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: run, closeF: closeF})
}

// Start launches every worker added so far. The first worker error is kept
// and returned from Wait.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.workers[s.started:] {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.WithField("worker", w.name).Debug("Worker starting")
			if err := w.run(ctx); err != nil {
				log.WithField("worker", w.name).WithError(err).Error("Worker failed")
				s.errOnce.Do(func() { s.err = fmt.Errorf("%s: %w", w.name, err) })
			}
		}()
	}
	s.started = len(s.workers)
	return nil
}

// Wait blocks until ctx is done, closes the workers and waits for them to
// return. Close errors are logged, not returned.
func (s *Supervisor) Wait(ctx context.Context) error {
	<-ctx.Done()

	s.mu.Lock()
	workers := append([]worker(nil), s.workers[:s.started]...)
	s.mu.Unlock()

	var closeErr error
	for i := len(workers) - 1; i >= 0; i-- {
		if workers[i].closeF == nil {
			continue
		}
		if err := workers[i].closeF(); err != nil {
			closeErr = multierr.Append(closeErr, fmt.Errorf("%s: %w", workers[i].name, err))
		}
	}
	if closeErr != nil {
		log.WithError(closeErr).Warn("Errors while closing workers")
	}

	s.wg.Wait()
	return s.err
}
