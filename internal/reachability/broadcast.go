package reachability

import (
	"github.com/dmdmdm-nz/reachd/internal/notify"
)

const (
	ChangedNotification = "ReachabilityChangedNotification"

	// Info keys of a ChangedNotification.
	FlagsKey    = "flags"
	SnapshotKey = "snapshot"
)

func (m *Monitor) broadcast(s Snapshot) {
	if m.center == nil {
		return
	}
	m.center.Post(notify.Notification{
		Name:   ChangedNotification,
		Sender: m,
		Info: map[string]any{
			FlagsKey:    s.Flags(),
			SnapshotKey: s,
		},
	})
}
