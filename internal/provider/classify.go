package provider

import (
	"net"
	"strings"
)

// Interface name prefixes used by cellular modems across Linux drivers,
// Android vendors and darwin.
var cellularPrefixes = []string{"wwan", "wwp", "rmnet", "ccmni", "pdp_ip"}

// IsCellular reports whether the named interface is a WWAN link.
func IsCellular(name string) bool {
	for _, prefix := range cellularPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return isCellularDevice(name)
}

// routeFlags builds the flags for a usable route leaving through ifName.
func routeFlags(ifName string, gateway net.IP) Flags {
	f := Reachable
	if gateway == nil || gateway.IsUnspecified() {
		f |= IsDirect
	}
	if IsCellular(ifName) {
		f |= IsWWAN
	}
	return f
}
