package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/miekg/dns"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrNoAddresses = errors.New("host has no addresses")

const (
	DefaultResolvConf     = "/etc/resolv.conf"
	DefaultResolveTimeout = 5 * time.Second
	defaultCacheSize      = 256
	defaultCacheTTL       = 30 * time.Second
)

type ResolverConfig struct {
	ConfigPath string
	Timeout    time.Duration
	CacheSize  int
	CacheTTL   time.Duration
}

// Resolver looks up A and AAAA records for named hosts. Answers are cached
// for CacheTTL and concurrent lookups of one name share a single query.
type Resolver struct {
	servers  []string
	search   *dns.ClientConfig
	client   *dns.Client
	cache    *expirable.LRU[string, []net.IP]
	group    singleflight.Group
	fallback *net.Resolver
	timeout  time.Duration
}

func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultResolvConf
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultResolveTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	r := &Resolver{
		client:   &dns.Client{Timeout: cfg.Timeout},
		cache:    expirable.NewLRU[string, []net.IP](cfg.CacheSize, nil, cfg.CacheTTL),
		fallback: net.DefaultResolver,
		timeout:  cfg.Timeout,
	}

	cc, err := dns.ClientConfigFromFile(cfg.ConfigPath)
	if err != nil {
		log.WithField("path", cfg.ConfigPath).WithError(err).Debug("No resolver configuration, using system resolver")
		return r
	}
	r.search = cc
	for _, s := range cc.Servers {
		r.servers = append(r.servers, net.JoinHostPort(s, cc.Port))
	}
	return r
}

// Lookup returns the addresses of host. IP literals are returned as is.
func (r *Resolver) Lookup(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	key := strings.ToLower(dns.Fqdn(host))
	if addrs, ok := r.cache.Get(key); ok {
		return addrs, nil
	}

	// The shared lookup outlives any one caller; each caller only stops
	// waiting when its own ctx ends.
	ch := r.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		addrs, err := r.query(ctx, host)
		if err != nil {
			return nil, err
		}
		r.cache.Add(key, addrs)
		return addrs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]net.IP), nil
	}
}

func (r *Resolver) query(ctx context.Context, host string) ([]net.IP, error) {
	if len(r.servers) == 0 {
		return r.lookupSystem(ctx, host)
	}

	var lastErr error
	for _, name := range r.search.NameList(host) {
		var addrs []net.IP
		for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
			found, err := r.exchange(ctx, name, qtype)
			if err != nil {
				lastErr = err
				continue
			}
			addrs = append(addrs, found...)
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
	}
	if lastErr != nil {
		log.WithField("host", host).WithError(lastErr).Debug("DNS query failed, trying system resolver")
		return r.lookupSystem(ctx, host)
	}
	return nil, fmt.Errorf("%s: %w", host, ErrNoAddresses)
}

func (r *Resolver) exchange(ctx context.Context, name string, qtype uint16) ([]net.IP, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		switch in.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			// The name does not exist; no point asking the next server.
			return nil, nil
		default:
			lastErr = fmt.Errorf("%s: %s", server, dns.RcodeToString[in.Rcode])
			continue
		}
		var addrs []net.IP
		for _, rr := range in.Answer {
			switch a := rr.(type) {
			case *dns.A:
				addrs = append(addrs, a.A)
			case *dns.AAAA:
				addrs = append(addrs, a.AAAA)
			}
		}
		return addrs, nil
	}
	return nil, lastErr
}

func (r *Resolver) lookupSystem(ctx context.Context, host string) ([]net.IP, error) {
	ipAddrs, err := r.fallback.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(ipAddrs) == 0 {
		return nil, fmt.Errorf("%s: %w", host, ErrNoAddresses)
	}
	addrs := make([]net.IP, 0, len(ipAddrs))
	for _, a := range ipAddrs {
		addrs = append(addrs, a.IP)
	}
	return addrs, nil
}

// ValidHostName reports whether name is an IP literal or a syntactically
// valid DNS host name.
func ValidHostName(name string) bool {
	if name == "" {
		return false
	}
	if net.ParseIP(name) != nil {
		return true
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return false
	}
	labels := dns.SplitDomainName(name)
	if len(labels) == 0 {
		return false
	}
	for _, label := range labels {
		if label == "" || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
				return false
			}
		}
	}
	return true
}
