package dispatch

import "sync"

const MainQueueName = "main"

var mainQueue = sync.OnceValue(func() *SerialQueue {
	return NewSerialQueue(MainQueueName)
})

// Main returns the process-wide serial queue used when nobody picked an
// executor. It is never closed.
func Main() *SerialQueue {
	return mainQueue()
}
