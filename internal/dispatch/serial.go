package dispatch

import (
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/reachd/internal/runtime"
)

// SerialQueue runs tasks one at a time, in submission order, on a dedicated
// goroutine.
type SerialQueue struct {
	name      string
	q         *runtime.Queue[func()]
	processed atomic.Uint64
}

func NewSerialQueue(name string) *SerialQueue {
	sq := &SerialQueue{name: name}
	sq.q = runtime.NewQueue(sq.run)
	return sq
}

// Submit enqueues task. Tasks submitted after Close are dropped.
func (sq *SerialQueue) Submit(task func()) {
	if !sq.q.Enqueue(task) {
		log.WithField("queue", sq.name).Trace("Dropping task submitted to closed queue")
	}
}

// Close stops the queue. Tasks that have not started are discarded.
func (sq *SerialQueue) Close() {
	sq.q.Close()
}

// Processed returns how many tasks have finished.
func (sq *SerialQueue) Processed() uint64 { return sq.processed.Load() }

// Pending returns how many tasks are waiting to run.
func (sq *SerialQueue) Pending() int { return sq.q.Len() }

func (sq *SerialQueue) Name() string { return sq.name }

func (sq *SerialQueue) String() string { return fmt.Sprintf("SerialQueue(%s)", sq.name) }

func (sq *SerialQueue) run(task func()) {
	defer sq.processed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("queue", sq.name).Errorf("Task panicked: %v", r)
		}
	}()
	task()
}
