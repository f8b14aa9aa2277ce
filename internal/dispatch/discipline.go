package dispatch

import "sync/atomic"

type executorRef struct {
	e Executor
}

// Discipline holds the executor notifications are currently routed to. The
// reference is swapped atomically and read at each scheduling point, so a
// reassignment only affects work submitted after it.
type Discipline struct {
	cur atomic.Pointer[executorRef]
}

// NewDiscipline returns a discipline targeting e, or Main() when e is nil.
func NewDiscipline(e Executor) *Discipline {
	d := &Discipline{}
	d.Set(e)
	return d
}

// Executor returns the current target.
func (d *Discipline) Executor() Executor {
	return d.cur.Load().e
}

// Set replaces the target. A nil executor restores Main().
func (d *Discipline) Set(e Executor) {
	if e == nil {
		e = Main()
	}
	d.cur.Store(&executorRef{e: e})
}

// Submit hands task to the current target without waiting for it.
func (d *Discipline) Submit(task func()) {
	d.Executor().Submit(task)
}
