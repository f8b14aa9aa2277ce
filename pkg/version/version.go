package version

import (
	"strings"

	"github.com/Masterminds/semver"
)

var (
	// Version contains the current version of reachd
	Version = "dev"

	// CommitHash contains the current git commit hash
	CommitHash = "unknown"

	// BuildTime contains the time of build
	BuildTime = "unknown"
)

// Semver parses Version. Development builds return an error.
func Semver() (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(Version, "v"))
}
