package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	plist "howett.net/plist"

	"github.com/dmdmdm-nz/reachd/internal/provider"
	"github.com/dmdmdm-nz/reachd/internal/provider/providertest"
	"github.com/dmdmdm-nz/reachd/internal/reachability"
	"github.com/dmdmdm-nz/reachd/pkg/version"
)

// Helper to create a service with one default-route monitor backed by a fake
func newTestService(t *testing.T, initial provider.Flags) (*Service, *providertest.Fake, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	fake := providertest.New(initial)
	m, err := reachability.NewDefaultRoute(fake, reachability.WithMetrics(reachability.NewMetrics(reg)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	s := NewService("127.0.0.1", 0, reg)
	s.AttachMonitor(m)
	return s, fake, reg
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestService(t, 0)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGetStatus_JSON(t *testing.T) {
	s, _, _ := newTestService(t, provider.Reachable|provider.IsWWAN)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status/default", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result TargetStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "default", result.Target)
	assert.Equal(t, "active", result.State)
	assert.True(t, result.Reachable)
	assert.True(t, result.ReachableViaWWAN)
	assert.False(t, result.ReachableViaWiFi)
	assert.Equal(t, "wwan", result.Status)
	assert.Equal(t, "WR -------", result.FlagString)
	assert.Equal(t, uint32(provider.Reachable|provider.IsWWAN), result.Flags)
}

func TestGetStatus_Plist(t *testing.T) {
	s, _, _ := newTestService(t, provider.Reachable)

	req := httptest.NewRequest(http.MethodGet, "/status/default", nil)
	req.Header.Set("Accept", "application/x-plist")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-plist", w.Header().Get("Content-Type"))

	var result TargetStatus
	_, err := plist.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "default", result.Target)
	assert.True(t, result.ReachableViaWiFi)
}

func TestGetStatus_NotFound(t *testing.T) {
	s, _, _ := newTestService(t, 0)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status/nonexistent.example", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAllStatus(t *testing.T) {
	s, _, _ := newTestService(t, provider.Reachable)

	host, err := reachability.NewHostName(providertest.New(0), "example.com")
	require.NoError(t, err)
	t.Cleanup(func() { _ = host.Close() })
	s.AttachMonitor(host)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var result []TargetStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "default", result[0].Target)
	assert.True(t, result[0].Reachable)
	assert.Equal(t, "example.com", result[1].Target)
	assert.False(t, result[1].Reachable)
}

func TestVersion(t *testing.T) {
	old := version.Version
	version.Version = "1.2.3"
	t.Cleanup(func() { version.Version = old })

	s, _, _ := newTestService(t, 0)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var result VersionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "1.2.3", result.Version)
	require.NotNil(t, result.Minor)
	assert.Equal(t, int64(2), *result.Minor)
}

func TestMetrics(t *testing.T) {
	s, fake, _ := newTestService(t, 0)
	fake.Emit(provider.Reachable)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `reachd_callbacks_total{target="default"} 1`)
	assert.Contains(t, body, `reachd_reachable{target="default",via="any"} 1`)
}

func TestEventsWebSocket(t *testing.T) {
	s, fake, _ := newTestService(t, provider.Reachable)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?target=default"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "done")

	read := func() ReachabilityEvent {
		_, b, err := c.Read(ctx)
		require.NoError(t, err)
		var ev ReachabilityEvent
		require.NoError(t, json.Unmarshal(b, &ev))
		return ev
	}

	first := read()
	assert.Equal(t, uint64(1), first.Seq)
	assert.NotEmpty(t, first.ClientID)
	assert.True(t, first.Status.ReachableViaWiFi)

	fake.Emit(provider.Reachable | provider.IsWWAN)
	second := read()
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, first.ClientID, second.ClientID)
	assert.True(t, second.Status.ReachableViaWWAN)
}

func TestEventsWebSocket_UnknownTarget(t *testing.T) {
	s, _, _ := newTestService(t, 0)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/events?target=nope.example", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCloseBeforeStart(t *testing.T) {
	s := NewService("127.0.0.1", 0, nil)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Start(context.Background()))
}
