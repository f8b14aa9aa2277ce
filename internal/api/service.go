package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	plist "howett.net/plist"

	"github.com/dmdmdm-nz/reachd/internal/reachability"
	"github.com/dmdmdm-nz/reachd/pkg/version"
)

const plistContentType = "application/x-plist"

// Service represents the HTTP server for the API
type Service struct {
	address  string
	port     int
	gatherer prometheus.Gatherer

	mu       sync.RWMutex
	monitors map[string]*reachability.Monitor
	server   *http.Server
	closed   bool
}

// NewService creates the API service. A nil gatherer serves the default
// Prometheus registry.
func NewService(host string, port int, gatherer prometheus.Gatherer) *Service {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Service{
		address:  host,
		port:     port,
		gatherer: gatherer,
		monitors: make(map[string]*reachability.Monitor),
	}
}

// AttachMonitor exposes m under its target name.
func (s *Service) AttachMonitor(m *reachability.Monitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitors[m.Target().String()] = m
}

func (s *Service) monitor(name string) (*reachability.Monitor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitors[name]
	return m, ok
}

// Start serves the API until ctx is done or Close is called.
func (s *Service) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.address, s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.server = srv
	s.mu.Unlock()

	log.Infof("Starting reachd API service at %s", addr)
	defer log.Info("Stopping reachd API service")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Handler returns the API routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /status", s.handleStatusAll)
	mux.HandleFunc("GET /status/{target}", s.handleStatus)
	mux.HandleFunc("GET /ws/events", s.handleEvents)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /version", handleVersion)
	return mux
}

func (s *Service) handleStatusAll(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.monitors))
	for name := range s.monitors {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	statuses := make([]TargetStatus, 0, len(names))
	for _, name := range names {
		if m, ok := s.monitor(name); ok {
			statuses = append(statuses, statusOf(m))
		}
	}
	writeResponse(w, r, statuses)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monitor(r.PathValue("target"))
	if !ok {
		http.Error(w, "No such target", http.StatusNotFound)
		return
	}
	writeResponse(w, r, statusOf(m))
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	info := VersionInfo{
		Version:   version.Version,
		Commit:    version.CommitHash,
		BuildTime: version.BuildTime,
	}
	if v, err := version.Semver(); err == nil {
		major, minor, patch := v.Major(), v.Minor(), v.Patch()
		info.Major, info.Minor, info.Patch = &major, &minor, &patch
		info.Prerelease = v.Prerelease()
	}
	writeJSON(w, info)
}

func statusOf(m *reachability.Monitor) TargetStatus {
	return newTargetStatus(m.Target().String(), m.State(), m.Current())
}

// writeResponse encodes v as a plist when the client asks for one and as
// JSON otherwise.
func writeResponse(w http.ResponseWriter, r *http.Request, v any) {
	if !strings.Contains(r.Header.Get("Accept"), plistContentType) {
		writeJSON(w, v)
		return
	}
	b, err := plist.Marshal(v, plist.XMLFormat)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode plist: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", plistContentType)
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
