package enums

import "fmt"

// SyncStatus is the terminal outcome recorded for one entity run.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

var validSyncStatuses = []SyncStatus{
	SyncStatusSuccess,
	SyncStatusError,
}

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncStatus.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncStatus converts raw input into a SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, error) {
	for _, candidate := range validSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync status %q", value)
}

// RunState tracks an in-flight entity run. Every run ends in RunStateLogged.
type RunState string

const (
	RunStatePending      RunState = "pending"
	RunStateFetching     RunState = "fetching"
	RunStateTransforming RunState = "transforming"
	RunStateReconciling  RunState = "reconciling"
	RunStateLogged       RunState = "logged"
)

// String implements fmt.Stringer.
func (s RunState) String() string {
	return string(s)
}

// Terminal reports whether the run has written its log entry.
func (s RunState) Terminal() bool {
	return s == RunStateLogged
}

// SyncTrigger records what started a run.
type SyncTrigger string

const (
	SyncTriggerSchedule SyncTrigger = "schedule"
	SyncTriggerManual   SyncTrigger = "manual"
)

// String implements fmt.Stringer.
func (s SyncTrigger) String() string {
	return string(s)
}
