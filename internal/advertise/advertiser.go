// Package advertise announces the reachd API over mDNS. The TXT record
// carries the default route's status and is refreshed on every change.
package advertise

import (
	"context"
	"fmt"
	"net"

	"github.com/dmdmdm-nz/zeroconf"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/reachd/internal/reachability"
)

const (
	ServiceType = "_reachd._tcp"
	Domain      = "local."
)

type server interface {
	SetText(text []string)
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (server, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (server, error) {
	s, err := zeroconf.Register(instance, service, domain, port, text, ifaces)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type Advertiser struct {
	instance string
	port     int
	monitor  *reachability.Monitor
	register registerFunc
}

func New(instance string, port int, m *reachability.Monitor) *Advertiser {
	return &Advertiser{
		instance: instance,
		port:     port,
		monitor:  m,
		register: zeroconfRegister,
	}
}

// Start registers the service and keeps its TXT record current until ctx is
// done or the monitor stops.
func (a *Advertiser) Start(ctx context.Context) error {
	updates, cancel := a.monitor.Updates()
	defer cancel()

	srv, err := a.register(a.instance, ServiceType, Domain, a.port, TXT(a.monitor.Current()), nil)
	if err != nil {
		return fmt.Errorf("register mDNS service: %w", err)
	}
	defer srv.Shutdown()

	log.WithFields(log.Fields{
		"instance": a.instance,
		"service":  ServiceType,
		"port":     a.port,
	}).Info("Advertising API over mDNS")

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			srv.SetText(TXT(snap))
		}
	}
}

func (a *Advertiser) Close() error { return nil }

// TXT renders a snapshot as mDNS TXT entries.
func TXT(s reachability.Snapshot) []string {
	reachable := "0"
	if s.Reachable() {
		reachable = "1"
	}
	return []string{
		"reachable=" + reachable,
		"via=" + s.Status().String(),
		fmt.Sprintf("flags=%#x", uint32(s.Flags())),
	}
}
