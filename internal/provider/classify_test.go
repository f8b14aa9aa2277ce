package provider

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCellular(t *testing.T) {
	for _, name := range []string{"wwan0", "wwp0s20f0u6", "rmnet_data0", "ccmni1", "pdp_ip0"} {
		assert.True(t, IsCellular(name), name)
	}
	for _, name := range []string{"eth0", "wlan0", "en0", "lo", "utun3"} {
		assert.False(t, IsCellular(name), name)
	}
}

func TestRouteFlags(t *testing.T) {
	assert.Equal(t, Reachable, routeFlags("eth0", net.ParseIP("192.168.1.1")))
	assert.Equal(t, Reachable|IsDirect, routeFlags("eth0", nil))
	assert.Equal(t, Reachable|IsDirect, routeFlags("eth0", net.IPv4zero))
	assert.Equal(t, Reachable|IsWWAN, routeFlags("wwan0", net.ParseIP("10.64.0.1")))
}
