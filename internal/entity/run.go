package entity

import "time"

// RunStatus is the lifecycle state of a discovery run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Valid reports whether s is one of the known run statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// RunMetrics are the aggregate counters persisted on run finalization.
type RunMetrics struct {
	PagesCrawled int    `json:"pages_crawled"`
	PagesSkipped int    `json:"pages_skipped"`
	PagesFailed  int    `json:"pages_failed"`
	Extractions  int    `json:"extractions"`
	DurationMS   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
}

// Run mirrors the `discovery_runs` table: one row per pipeline invocation.
// EndedAt is nil while the run is in flight and is set exactly once.
type Run struct {
	ID        string
	PatchID   string
	StartedAt time.Time
	EndedAt   *time.Time
	Status    RunStatus
	Metrics   RunMetrics
}
