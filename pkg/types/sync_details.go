package types

import "time"

// Fetch modes recorded on SyncDetails.Mode.
const (
	FetchModeFull        = "full"
	FetchModeIncremental = "incremental"
)

// SyncDetails is the per-entity run summary persisted on each sync log entry.
type SyncDetails struct {
	Trigger string `json:"trigger,omitempty"`
	// StartedAt is when the run began. The next incremental window starts
	// from here.
	StartedAt *time.Time `json:"started_at,omitempty"`
	Mode      string     `json:"mode,omitempty"`
	// FullReason says why an incremental run fell back to a full fetch.
	FullReason  string `json:"full_reason,omitempty"`
	Fetched     int    `json:"fetched"`
	Pages       int    `json:"pages"`
	Truncated   bool   `json:"truncated,omitempty"`
	Transformed int    `json:"transformed"`
	Dropped     int    `json:"dropped"`
	// Skipped counts records filtered out on purpose, such as vendor contacts.
	Skipped int `json:"skipped,omitempty"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
	// DependencyDegraded is set when an entity this one resolves against had
	// not finished cleanly when the run started.
	DependencyDegraded bool  `json:"dependency_degraded,omitempty"`
	DurationMS         int64 `json:"duration_ms"`
	// Since is the incremental lower bound used for the fetch, RFC3339.
	Since      string   `json:"since,omitempty"`
	FetchError string   `json:"fetch_error,omitempty"`
	Error      string   `json:"error,omitempty"`
	RecordErrs []string `json:"record_errors,omitempty"`
}

// Complete reports whether the run stored every upstream record it saw. Only a
// complete run may anchor the next incremental window.
func (d SyncDetails) Complete() bool {
	return d.FetchError == "" &&
		d.Error == "" &&
		!d.Truncated &&
		!d.DependencyDegraded &&
		d.Dropped == 0 &&
		d.Errors == 0
}
