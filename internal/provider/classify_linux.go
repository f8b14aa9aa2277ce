//go:build linux

package provider

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

var sysfsNetRoot = "/sys/class/net"

// isCellularDevice checks the kernel's device type, which catches modems
// whose interface was renamed.
func isCellularDevice(name string) bool {
	f, err := os.Open(filepath.Join(sysfsNetRoot, name, "uevent"))
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "DEVTYPE=wwan" {
			return true
		}
	}
	return false
}
