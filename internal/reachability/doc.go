// Package reachability tracks whether a network target can be reached and
// fans changes out to observers.
//
// A Monitor owns exactly one provider subscription. Every provider callback
// becomes an immutable Snapshot that atomically replaces the cached one and
// is then published on the monitor's bus. Queries read the cache without
// locking; before the first snapshot is stored they report "not reachable".
//
// Lifecycle:
//
//	uninitialized -> active   (provider started and seeded)
//	uninitialized -> stopped  (construction failed)
//	active        -> stopped  (Close)
//
// Stopped is terminal. Once Close returns, no handler of the monitor is
// running and none will start.
package reachability
