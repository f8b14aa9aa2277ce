package reachability

import (
	"github.com/dmdmdm-nz/reachd/internal/dispatch"
	"github.com/dmdmdm-nz/reachd/internal/notify"
)

type config struct {
	executor     dispatch.Executor
	suppressDups bool
	center       *notify.Center
	metrics      *Metrics
}

type Option func(*config)

// WithExecutor routes notifications to e instead of the main queue.
func WithExecutor(e dispatch.Executor) Option {
	return func(c *config) { c.executor = e }
}

// WithSuppressDuplicates drops provider callbacks whose flags equal the
// cached flags. By default every callback is delivered.
func WithSuppressDuplicates() Option {
	return func(c *config) { c.suppressDups = true }
}

// WithBroadcast also posts every change to center under
// ChangedNotification.
func WithBroadcast(center *notify.Center) Option {
	return func(c *config) { c.center = center }
}

func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}
