//go:build linux

package provider

import (
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

func nativeWatcherKind() string { return WatcherNetlink }

func newNativeWatcher() Watcher { return &netlinkWatcher{} }

func newNativeEvaluator(string) (Evaluator, error) { return netlinkEvaluator{}, nil }

// netlinkWatcher subscribes to link, address and route updates.
type netlinkWatcher struct {
	mu      sync.Mutex
	stop    chan struct{}
	dones   []chan struct{}
	drains  []func()
	wg      sync.WaitGroup
	running bool
}

func (w *netlinkWatcher) Open(callback func(ChangeEvent)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyStarted
	}

	linkCh := make(chan netlink.LinkUpdate, 16)
	linkDone := make(chan struct{})
	addrCh := make(chan netlink.AddrUpdate, 16)
	addrDone := make(chan struct{})
	routeCh := make(chan netlink.RouteUpdate, 16)
	routeDone := make(chan struct{})

	if err := netlink.LinkSubscribe(linkCh, linkDone); err != nil {
		return fmt.Errorf("subscribe to links: %w", err)
	}
	if err := netlink.AddrSubscribe(addrCh, addrDone); err != nil {
		close(linkDone)
		return fmt.Errorf("subscribe to addresses: %w", err)
	}
	if err := netlink.RouteSubscribe(routeCh, routeDone); err != nil {
		close(linkDone)
		close(addrDone)
		return fmt.Errorf("subscribe to routes: %w", err)
	}

	w.stop = make(chan struct{})
	w.dones = []chan struct{}{linkDone, addrDone, routeDone}
	// netlink closes the update channels once its sockets shut down; keep
	// reading until then so its receive goroutines never block on a send.
	w.drains = []func(){
		func() {
			for range linkCh {
			}
		},
		func() {
			for range addrCh {
			}
		},
		func() {
			for range routeCh {
			}
		},
	}
	w.running = true

	w.wg.Add(1)
	go w.run(linkCh, addrCh, routeCh, callback)
	log.Debug("Netlink watcher subscribed")
	return nil
}

func (w *netlinkWatcher) run(linkCh <-chan netlink.LinkUpdate, addrCh <-chan netlink.AddrUpdate, routeCh <-chan netlink.RouteUpdate, callback func(ChangeEvent)) {
	defer w.wg.Done()
	for linkCh != nil || addrCh != nil || routeCh != nil {
		select {
		case <-w.stop:
			return

		case update, ok := <-linkCh:
			if !ok {
				log.Warn("Netlink link subscription closed")
				linkCh = nil
				continue
			}
			name := update.Link.Attrs().Name
			log.WithFields(log.Fields{
				"interface": name,
				"flags":     update.Link.Attrs().Flags,
			}).Trace("Link update")
			callback(ChangeEvent{Kind: LinkChanged, Interface: name})

		case update, ok := <-addrCh:
			if !ok {
				log.Warn("Netlink address subscription closed")
				addrCh = nil
				continue
			}
			ev := ChangeEvent{Kind: AddrChanged}
			if iface, err := net.InterfaceByIndex(update.LinkIndex); err == nil {
				ev.Interface = iface.Name
			}
			log.WithFields(log.Fields{
				"interface": ev.Interface,
				"address":   update.LinkAddress.String(),
				"new":       update.NewAddr,
			}).Trace("Address update")
			callback(ev)

		case update, ok := <-routeCh:
			if !ok {
				log.Warn("Netlink route subscription closed")
				routeCh = nil
				continue
			}
			if update.Table != unix.RT_TABLE_MAIN {
				continue
			}
			log.WithFields(log.Fields{
				"dst":  update.Dst,
				"gw":   update.Gw,
				"type": update.Type,
			}).Trace("Route update")
			callback(ChangeEvent{Kind: RouteChanged})
		}
	}
	log.Warn("All netlink subscriptions closed, watcher idle")
}

func (w *netlinkWatcher) Close() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stop)
	for _, done := range w.dones {
		close(done)
	}
	drains := w.drains
	w.mu.Unlock()

	w.wg.Wait()
	for _, drain := range drains {
		go drain()
	}
	return nil
}

// netlinkEvaluator reads the main routing table directly.
type netlinkEvaluator struct{}

func (netlinkEvaluator) DefaultRoute() (Flags, error) {
	routes, err := netlink.RouteListFiltered(netlink.FAMILY_ALL, &netlink.Route{Table: unix.RT_TABLE_MAIN}, netlink.RT_FILTER_TABLE)
	if err != nil {
		return 0, fmt.Errorf("list routes: %w", err)
	}

	var best *netlink.Route
	var bestLink netlink.Link
	for i := range routes {
		r := &routes[i]
		if !isDefaultRoute(r) {
			continue
		}
		linkIndex, _ := nexthop(r)
		link, err := netlink.LinkByIndex(linkIndex)
		if err != nil || !linkUsable(link) {
			continue
		}
		if best == nil || r.Priority < best.Priority {
			best, bestLink = r, link
		}
	}
	if best == nil {
		return 0, nil
	}

	_, gw := nexthop(best)
	return routeFlags(bestLink.Attrs().Name, gw), nil
}

func (netlinkEvaluator) Host(addrs []net.IP) (Flags, error) {
	for _, ip := range addrs {
		routes, err := netlink.RouteGet(ip)
		if err != nil || len(routes) == 0 {
			log.WithField("address", ip.String()).WithError(err).Trace("No route to address")
			continue
		}
		r := routes[0]
		if r.Type == unix.RTN_LOCAL {
			return Reachable | IsLocalAddress | IsDirect, nil
		}
		link, err := netlink.LinkByIndex(r.LinkIndex)
		if err != nil || !linkUsable(link) {
			continue
		}
		return routeFlags(link.Attrs().Name, r.Gw), nil
	}
	return 0, nil
}

func isDefaultRoute(r *netlink.Route) bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0 && r.Dst.IP.IsUnspecified()
}

func nexthop(r *netlink.Route) (int, net.IP) {
	if r.LinkIndex == 0 && len(r.MultiPath) > 0 {
		return r.MultiPath[0].LinkIndex, r.MultiPath[0].Gw
	}
	return r.LinkIndex, r.Gw
}

func linkUsable(link netlink.Link) bool {
	attrs := link.Attrs()
	if attrs.Flags&net.FlagUp == 0 {
		return false
	}
	// Point-to-point and modem links often never leave "unknown".
	return attrs.OperState == netlink.OperUp || attrs.OperState == netlink.OperUnknown
}
