package reachability

import (
	"fmt"
	"time"

	"github.com/dmdmdm-nz/reachd/internal/provider"
)

type Status int

const (
	NotReachable Status = iota
	ReachableViaWiFi
	ReachableViaWWAN
)

func (s Status) String() string {
	switch s {
	case ReachableViaWiFi:
		return "wifi"
	case ReachableViaWWAN:
		return "wwan"
	default:
		return "none"
	}
}

// Snapshot is one observation of a target's raw flags. Its predicates are
// pure functions of the flags; the observation time is informational.
type Snapshot struct {
	raw      provider.Flags
	observed time.Time
}

func NewSnapshot(raw provider.Flags) Snapshot {
	return Snapshot{raw: raw, observed: time.Now()}
}

func (s Snapshot) Flags() provider.Flags { return s.raw }

func (s Snapshot) ObservedAt() time.Time { return s.observed }

func (s Snapshot) Reachable() bool {
	return s.raw.Has(provider.Reachable)
}

func (s Snapshot) ReachableViaWWAN() bool {
	return s.Reachable() && s.raw.Has(provider.IsWWAN)
}

// ReachableViaWiFi covers every non-cellular path, wired included.
func (s Snapshot) ReachableViaWiFi() bool {
	return s.Reachable() && !s.ReachableViaWWAN()
}

func (s Snapshot) Status() Status {
	switch {
	case s.ReachableViaWWAN():
		return ReachableViaWWAN
	case s.Reachable():
		return ReachableViaWiFi
	default:
		return NotReachable
	}
}

// Equal compares flags only.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.raw == o.raw
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s [%s]", s.Status(), s.raw)
}
