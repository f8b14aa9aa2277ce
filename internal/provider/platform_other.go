//go:build !linux && !darwin

package provider

// No event-driven feed; the factory falls back to polling.
func nativeWatcherKind() string { return "" }

func newNativeWatcher() Watcher { return nil }

func newNativeEvaluator(probe string) (Evaluator, error) { return newDialEvaluator(probe) }
