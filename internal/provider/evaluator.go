package provider

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
)

// Evaluator computes raw flags from the host's current routing state.
type Evaluator interface {
	// DefaultRoute reports general internet reachability.
	DefaultRoute() (Flags, error)

	// Host reports reachability of the first reachable address in addrs.
	Host(addrs []net.IP) (Flags, error)
}

// dialEvaluator asks the kernel for a route by connecting a UDP socket. No
// packet is sent; connect only selects the egress address.
type dialEvaluator struct {
	probeIP    net.IP
	port       string
	interfaces func() ([]ifaceAddrs, error)
	dial       func(network, address string) (net.Conn, error)
}

type ifaceAddrs struct {
	name string
	nets []*net.IPNet
}

// upInterfaces lists the addresses of every interface that is up.
func upInterfaces() ([]ifaceAddrs, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]ifaceAddrs, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		ia := ifaceAddrs{name: iface.Name}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				ia.nets = append(ia.nets, ipNet)
			}
		}
		out = append(out, ia)
	}
	return out, nil
}

func newDialEvaluator(probe string) (*dialEvaluator, error) {
	host, port, err := net.SplitHostPort(probe)
	if err != nil {
		return nil, fmt.Errorf("probe address %q: %w", probe, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("probe address %q: host must be an IP literal", probe)
	}
	return &dialEvaluator{
		probeIP:    ip,
		port:       port,
		interfaces: upInterfaces,
		dial:       net.Dial,
	}, nil
}

func (e *dialEvaluator) DefaultRoute() (Flags, error) {
	return e.evaluate(e.probeIP)
}

func (e *dialEvaluator) Host(addrs []net.IP) (Flags, error) {
	var lastErr error
	for _, ip := range addrs {
		f, err := e.evaluate(ip)
		if err != nil {
			lastErr = err
			continue
		}
		if f.Has(Reachable) {
			return f, nil
		}
	}
	return 0, lastErr
}

func (e *dialEvaluator) evaluate(target net.IP) (Flags, error) {
	if target.IsLoopback() {
		return Reachable | IsLocalAddress | IsDirect, nil
	}

	conn, err := e.dial("udp", net.JoinHostPort(target.String(), e.port))
	if err != nil {
		// Typically ENETUNREACH: no route to the target.
		log.WithField("target", target.String()).WithError(err).Trace("No route to target")
		return 0, nil
	}
	local := conn.LocalAddr().(*net.UDPAddr).IP
	_ = conn.Close()

	ifaces, err := e.interfaces()
	if err != nil {
		return 0, fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		for _, ipNet := range iface.nets {
			if !ipNet.IP.Equal(local) {
				continue
			}
			f := Reachable
			if IsCellular(iface.name) {
				f |= IsWWAN
			}
			if ipNet.Contains(target) {
				f |= IsDirect
			}
			if local.Equal(target) {
				f |= IsLocalAddress
			}
			return f, nil
		}
	}

	// Routed, but through an interface we could not identify.
	return Reachable, nil
}
