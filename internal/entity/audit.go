package entity

import "time"

// Pipeline step names recorded in audit entries.
const (
	StepDiscover = "discover"
	StepCrawl    = "crawl"
	StepDedup    = "dedup"
	StepExtract  = "extract"
	StepScore    = "score"
	StepHero     = "hero"
	StepFinalize = "finalize"
)

// Audit step statuses.
const (
	AuditOK      = "ok"
	AuditSkipped = "skipped"
	AuditError   = "error"
)

// AuditEntry mirrors the `discovery_audits` table: one immutable record per
// pipeline decision. Only RunID, PatchID, Step, Status and CreatedAt are
// always populated; every payload field is step-dependent.
type AuditEntry struct {
	ID        int64
	RunID     string
	PatchID   string
	Step      string
	Status    string
	CreatedAt time.Time

	Provider      string
	Query         string
	CandidateURL  string
	FinalURL      string
	HTTPMeta      map[string]any
	ExtractedMeta map[string]any
	MatchedRules  []string
	Scores        map[string]float64
	Decisions     map[string]any
	ContentHashes []string
	Synthesis     map[string]any
	Hero          map[string]any
	Timings       map[string]int64
	ErrorDetail   string
}
