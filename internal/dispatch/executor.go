// Package dispatch decides where notification work runs.
//
// An Executor accepts units of work and runs them later on some goroutine of
// its choosing. Delivery code relies on executors running tasks in the order
// they were submitted; every executor in this package does.
package dispatch

// Executor runs submitted tasks asynchronously. Submit must not block on the
// task itself.
type Executor interface {
	Submit(task func())
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(task func())

func (f ExecutorFunc) Submit(task func()) { f(task) }
