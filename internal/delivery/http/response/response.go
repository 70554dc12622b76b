package response

import (
	"time"

	"github.com/user/discovery-service/internal/entity"
)

// StartRunResponse acknowledges an accepted discovery run.
type StartRunResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

// RunSummaryResponse is the polling view of a run.
type RunSummaryResponse struct {
	RunID     string            `json:"run_id"`
	PatchID   string            `json:"patch_id"`
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   *time.Time        `json:"ended_at,omitempty"`
	Metrics   entity.RunMetrics `json:"metrics"`
}

// AuditEntryResponse is one audit trail record. Payload fields are omitted
// when absent.
type AuditEntryResponse struct {
	ID            int64              `json:"id"`
	RunID         string             `json:"run_id"`
	PatchID       string             `json:"patch_id"`
	Step          string             `json:"step"`
	Status        string             `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	Provider      string             `json:"provider,omitempty"`
	Query         string             `json:"query,omitempty"`
	CandidateURL  string             `json:"candidate_url,omitempty"`
	FinalURL      string             `json:"final_url,omitempty"`
	HTTPMeta      map[string]any     `json:"http_meta,omitempty"`
	ExtractedMeta map[string]any     `json:"extracted_meta,omitempty"`
	MatchedRules  []string           `json:"matched_rules,omitempty"`
	Scores        map[string]float64 `json:"scores,omitempty"`
	Decisions     map[string]any     `json:"decisions,omitempty"`
	ContentHashes []string           `json:"content_hashes,omitempty"`
	Synthesis     map[string]any     `json:"synthesis,omitempty"`
	Hero          map[string]any     `json:"hero,omitempty"`
	Timings       map[string]int64   `json:"timings,omitempty"`
	ErrorDetail   string             `json:"error_detail,omitempty"`
}

// FromRun maps a run entity to its summary DTO.
func FromRun(run *entity.Run) RunSummaryResponse {
	return RunSummaryResponse{
		RunID:     run.ID,
		PatchID:   run.PatchID,
		Status:    string(run.Status),
		StartedAt: run.StartedAt,
		EndedAt:   run.EndedAt,
		Metrics:   run.Metrics,
	}
}

// FromAudits maps audit entities to DTOs, preserving order.
func FromAudits(entries []*entity.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:            e.ID,
			RunID:         e.RunID,
			PatchID:       e.PatchID,
			Step:          e.Step,
			Status:        e.Status,
			CreatedAt:     e.CreatedAt,
			Provider:      e.Provider,
			Query:         e.Query,
			CandidateURL:  e.CandidateURL,
			FinalURL:      e.FinalURL,
			HTTPMeta:      e.HTTPMeta,
			ExtractedMeta: e.ExtractedMeta,
			MatchedRules:  e.MatchedRules,
			Scores:        e.Scores,
			Decisions:     e.Decisions,
			ContentHashes: e.ContentHashes,
			Synthesis:     e.Synthesis,
			Hero:          e.Hero,
			Timings:       e.Timings,
			ErrorDetail:   e.ErrorDetail,
		})
	}
	return out
}
