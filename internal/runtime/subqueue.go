package runtime

// SubQueue feeds a subscriber channel from an unbounded Queue so producers
// never block on a slow reader. It starts paused, which lets the owner push a
// snapshot ahead of any live events before calling SetPaused(false).
type SubQueue[T any] struct {
	q     *Queue[T]
	outCh chan T // consumer reads from this
}

func NewSubQueue[T any](outBuf int) *SubQueue[T] {
	sq := &SubQueue[T]{
		outCh: make(chan T, outBuf),
	}
	sq.q = newQueue(sq.send, true, func() { close(sq.outCh) })
	return sq
}

// Channel exposed to subscriber.
func (sq *SubQueue[T]) Chan() <-chan T { return sq.outCh }

// Enqueue appends to the in-memory queue and wakes dispatcher.
func (sq *SubQueue[T]) Enqueue(ev T) { sq.q.Enqueue(ev) }

// Pause/Resume gates dispatching (used to hold back live events during snapshot).
func (sq *SubQueue[T]) SetPaused(v bool) { sq.q.SetPaused(v) }

// Close stops the dispatcher and closes the out channel.
func (sq *SubQueue[T]) Close() { sq.q.Close() }

// OutOfBandSnapshotSend pushes a message directly to the subscriber channel,
// bypassing the queue. Use ONLY while the sub is paused and the channel has
// room for the whole snapshot burst.
func (sq *SubQueue[T]) OutOfBandSnapshotSend(ev T) {
	sq.outCh <- ev
}

func (sq *SubQueue[T]) send(ev T) {
	// A reader that went away must not wedge the dispatcher past Close.
	select {
	case sq.outCh <- ev:
	case <-sq.q.stop:
	}
}
