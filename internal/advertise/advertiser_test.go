package advertise

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdmdm-nz/reachd/internal/provider"
	"github.com/dmdmdm-nz/reachd/internal/provider/providertest"
	"github.com/dmdmdm-nz/reachd/internal/reachability"
)

type fakeServer struct {
	mu       sync.Mutex
	texts    [][]string
	shutdown bool
}

func (s *fakeServer) SetText(text []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *fakeServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}

func (s *fakeServer) last() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return nil
	}
	return s.texts[len(s.texts)-1]
}

func TestTXT(t *testing.T) {
	assert.Equal(t, []string{"reachable=0", "via=none", "flags=0x0"}, TXT(reachability.Snapshot{}))
	assert.Equal(t, []string{"reachable=1", "via=wwan", "flags=0x40002"},
		TXT(reachability.NewSnapshot(provider.Reachable|provider.IsWWAN)))
}

func TestAdvertiser_UpdatesText(t *testing.T) {
	fake := providertest.New(provider.Reachable)
	m, err := reachability.NewDefaultRoute(fake)
	require.NoError(t, err)
	defer m.Close()

	srv := &fakeServer{}
	var registered []string
	a := New("reachd-test", 60106, m)
	a.register = func(instance, service, domain string, port int, text []string, _ []net.Interface) (server, error) {
		assert.Equal(t, "reachd-test", instance)
		assert.Equal(t, ServiceType, service)
		assert.Equal(t, Domain, domain)
		assert.Equal(t, 60106, port)
		registered = text
		return srv, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	fake.Emit(provider.Reachable | provider.IsWWAN)
	assert.Eventually(t, func() bool {
		text := srv.last()
		return len(text) > 0 && text[1] == "via=wwan"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "reachable=1", registered[0])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("advertiser did not stop")
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.True(t, srv.shutdown)
}

func TestAdvertiser_RegisterError(t *testing.T) {
	m, err := reachability.NewDefaultRoute(providertest.New(0))
	require.NoError(t, err)
	defer m.Close()

	cause := errors.New("no multicast interfaces")
	a := New("reachd-test", 60106, m)
	a.register = func(string, string, string, int, []string, []net.Interface) (server, error) {
		return nil, cause
	}
	assert.ErrorIs(t, a.Start(context.Background()), cause)
}
