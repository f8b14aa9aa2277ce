//go:build darwin

package provider

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

func nativeWatcherKind() string { return WatcherRoute }

func newNativeWatcher() Watcher { return &routeWatcher{} }

func newNativeEvaluator(probe string) (Evaluator, error) { return newDialEvaluator(probe) }

// Read timeout on the routing socket, bounding how long Close waits.
const routeReadTimeout = 500 * time.Millisecond

// routeWatcher reads routing messages from an AF_ROUTE socket.
type routeWatcher struct {
	mu   sync.Mutex
	fd   int
	stop chan struct{}
	wg   sync.WaitGroup
}

func (w *routeWatcher) Open(callback func(ChangeEvent)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return ErrAlreadyStarted
	}

	fd, err := unix.Socket(unix.AF_ROUTE, unix.SOCK_RAW, unix.AF_UNSPEC)
	if err != nil {
		return fmt.Errorf("open route socket: %w", err)
	}
	tv := unix.NsecToTimeval(routeReadTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return fmt.Errorf("set route socket timeout: %w", err)
	}

	w.fd = fd
	w.stop = make(chan struct{})
	w.wg.Add(1)
	go w.run(fd, w.stop, callback)
	log.Debug("Route socket watcher started")
	return nil
}

func (w *routeWatcher) run(fd int, stop <-chan struct{}, callback func(ChangeEvent)) {
	defer w.wg.Done()
	buf := make([]byte, 2048)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			log.WithError(err).Warn("Error reading from route socket")
			continue
		}

		msgs, err := route.ParseRIB(route.RIBTypeRoute, buf[:n])
		if err != nil {
			log.WithError(err).Trace("Unparsable routing message")
			continue
		}
		for _, m := range msgs {
			if ev, ok := changeFromMessage(m); ok {
				callback(ev)
			}
		}
	}
}

func changeFromMessage(m route.Message) (ChangeEvent, bool) {
	switch msg := m.(type) {
	case *route.RouteMessage:
		log.WithField("type", msg.Type).Trace("Route message")
		return ChangeEvent{Kind: RouteChanged}, true
	case *route.InterfaceMessage:
		log.WithFields(log.Fields{
			"interface": msg.Name,
			"flags":     msg.Flags,
		}).Trace("Interface message")
		return ChangeEvent{Kind: LinkChanged, Interface: interfaceName(msg.Index, msg.Name)}, true
	case *route.InterfaceAddrMessage:
		return ChangeEvent{Kind: AddrChanged, Interface: interfaceName(msg.Index, "")}, true
	}
	return ChangeEvent{}, false
}

func interfaceName(index int, name string) string {
	if name != "" {
		return name
	}
	if iface, err := net.InterfaceByIndex(index); err == nil {
		return iface.Name
	}
	return ""
}

func (w *routeWatcher) Close() error {
	w.mu.Lock()
	stop := w.stop
	fd := w.fd
	w.stop = nil
	w.mu.Unlock()
	if stop == nil {
		return nil
	}

	close(stop)
	w.wg.Wait()
	return unix.Close(fd)
}
