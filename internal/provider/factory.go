package provider

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

const (
	WatcherAuto    = "auto"
	WatcherNetlink = "netlink"
	WatcherRoute   = "route"
	WatcherPoll    = "poll"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultProbeAddress = "1.1.1.1:53"
)

type Config struct {
	Watcher      string
	PollInterval time.Duration
	ProbeAddress string
	Resolver     HostResolver
	Clock        clock.Clock
}

// RoutingFactory builds providers backed by the host's routing state. Each
// provider owns its own watcher.
type RoutingFactory struct {
	cfg  Config
	kind string
	eval Evaluator
}

func NewFactory(cfg Config) (*RoutingFactory, error) {
	if cfg.Watcher == "" {
		cfg.Watcher = WatcherAuto
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ProbeAddress == "" {
		cfg.ProbeAddress = DefaultProbeAddress
	}
	if cfg.Resolver == nil {
		cfg.Resolver = NewResolver(ResolverConfig{})
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	kind, err := resolveWatcherKind(cfg.Watcher, nativeWatcherKind())
	if err != nil {
		return nil, err
	}
	eval, err := newNativeEvaluator(cfg.ProbeAddress)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"watcher":  kind,
		"interval": cfg.PollInterval,
	}).Debug("Provider factory configured")
	return &RoutingFactory{cfg: cfg, kind: kind, eval: eval}, nil
}

func resolveWatcherKind(requested, native string) (string, error) {
	switch requested {
	case WatcherAuto:
		if native == "" {
			return WatcherPoll, nil
		}
		return native, nil
	case WatcherPoll:
		return WatcherPoll, nil
	case WatcherNetlink, WatcherRoute:
		if requested != native {
			return "", fmt.Errorf("%s: %w", requested, ErrUnsupportedWatcher)
		}
		return requested, nil
	default:
		return "", fmt.Errorf("unknown watcher %q", requested)
	}
}

// WatcherKind reports which watcher providers from this factory use.
func (f *RoutingFactory) WatcherKind() string { return f.kind }

func (f *RoutingFactory) newWatcher() Watcher {
	if f.kind == WatcherPoll {
		return NewPollWatcher(f.cfg.Clock, f.cfg.PollInterval)
	}
	return newNativeWatcher()
}

func (f *RoutingFactory) ForDefaultRoute() (Provider, error) {
	return newRoutingProvider("", f.newWatcher(), f.eval, f.cfg.Resolver, f.cfg.Clock), nil
}

func (f *RoutingFactory) ForHostName(name string) (Provider, error) {
	if !ValidHostName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHostName, name)
	}
	return newRoutingProvider(name, f.newWatcher(), f.eval, f.cfg.Resolver, f.cfg.Clock), nil
}
