package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmdmdm-nz/reachd/internal/provider"
	"github.com/dmdmdm-nz/reachd/pkg/version"
)

// Config holds the application configuration from CLI flags
type Config struct {
	Port               int
	Host               string
	LogLevel           string
	WatchHosts         []string
	Watcher            string
	PollInterval       time.Duration
	ProbeAddress       string
	SuppressDuplicates bool
	Advertise          bool
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// ParseFlags parses command line arguments and returns a Config
func ParseFlags() *Config {
	cfg, showVersion, err := parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if showVersion {
		fmt.Printf("reachd version %s (commit: %s, built at: %s)\n",
			version.Version,
			version.CommitHash,
			version.BuildTime)
		os.Exit(0)
	}

	return cfg
}

func parse(fs *flag.FlagSet, args []string) (*Config, bool, error) {
	cfg := &Config{}
	var hosts stringList

	fs.IntVar(&cfg.Port, "port", 60106, "Port to listen on")
	fs.StringVar(&cfg.Host, "host", "127.0.0.1", "Host to bind to")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.Var(&hosts, "watch-host", "Host name to monitor in addition to the default route (repeatable)")
	fs.StringVar(&cfg.Watcher, "watcher", provider.WatcherAuto, "Change source (auto, netlink, route, poll)")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", provider.DefaultPollInterval, "Re-evaluation interval for the poll watcher")
	fs.StringVar(&cfg.ProbeAddress, "probe-address", provider.DefaultProbeAddress, "IP:port used to probe the default route where netlink is unavailable")
	fs.BoolVar(&cfg.SuppressDuplicates, "suppress-duplicates", false, "Drop notifications whose flags did not change")
	fs.BoolVar(&cfg.Advertise, "advertise", false, "Advertise the API over mDNS")
	showVersion := fs.Bool("version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	cfg.WatchHosts = uniqueHosts(hosts)
	return cfg, *showVersion, nil
}

// uniqueHosts drops repeated host names, keeping the first spelling.
// Names compare case-insensitively and without a trailing dot.
func uniqueHosts(hosts []string) []string {
	seen := make(map[string]struct{}, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		key := strings.ToLower(strings.TrimSuffix(h, "."))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

// String returns a string representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf("Host: %s, Port: %d, LogLevel: %s, WatchHosts: [%s], Watcher: %s, PollInterval: %s, ProbeAddress: %s, SuppressDuplicates: %t, Advertise: %t",
		c.Host, c.Port, c.LogLevel, strings.Join(c.WatchHosts, ","), c.Watcher, c.PollInterval, c.ProbeAddress, c.SuppressDuplicates, c.Advertise)
}
