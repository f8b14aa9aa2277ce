package api

import (
	"time"

	"github.com/dmdmdm-nz/reachd/internal/reachability"
)

type TargetStatus struct {
	Target           string    `json:"target" plist:"target"`
	State            string    `json:"state" plist:"state"`
	Reachable        bool      `json:"reachable" plist:"reachable"`
	ReachableViaWiFi bool      `json:"reachableViaWiFi" plist:"reachableViaWiFi"`
	ReachableViaWWAN bool      `json:"reachableViaWWAN" plist:"reachableViaWWAN"`
	Status           string    `json:"status" plist:"status"`
	Flags            uint32    `json:"flags" plist:"flags"`
	FlagString       string    `json:"flagString" plist:"flagString"`
	ObservedAt       time.Time `json:"observedAt" plist:"observedAt"`
}

// ReachabilityEvent is one websocket message.
type ReachabilityEvent struct {
	ClientID string       `json:"clientId"`
	Seq      uint64       `json:"seq"`
	Status   TargetStatus `json:"status"`
}

type VersionInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildTime  string `json:"buildTime"`
	Major      *int64 `json:"major,omitempty"`
	Minor      *int64 `json:"minor,omitempty"`
	Patch      *int64 `json:"patch,omitempty"`
	Prerelease string `json:"prerelease,omitempty"`
}

func newTargetStatus(target string, state reachability.State, s reachability.Snapshot) TargetStatus {
	return TargetStatus{
		Target:           target,
		State:            string(state),
		Reachable:        s.Reachable(),
		ReachableViaWiFi: s.ReachableViaWiFi(),
		ReachableViaWWAN: s.ReachableViaWWAN(),
		Status:           s.Status().String(),
		Flags:            uint32(s.Flags()),
		FlagString:       s.Flags().String(),
		ObservedAt:       s.ObservedAt(),
	}
}
