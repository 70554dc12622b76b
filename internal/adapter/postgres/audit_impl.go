package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/discovery-service/internal/entity"
)

// AuditRepoImpl implements AuditRepository on PostgreSQL. The table is
// append-only: this type deliberately exposes no update or delete.
type AuditRepoImpl struct {
	db *pgxpool.Pool
}

// NewAuditRepo creates a new AuditRepoImpl.
func NewAuditRepo(db *pgxpool.Pool) *AuditRepoImpl {
	return &AuditRepoImpl{db: db}
}

// Append durably persists one audit entry before returning.
func (r *AuditRepoImpl) Append(ctx context.Context, e *entity.AuditEntry) error {
	httpMeta, err := marshalNullable(e.HTTPMeta)
	if err != nil {
		return err
	}
	extractedMeta, err := marshalNullable(e.ExtractedMeta)
	if err != nil {
		return err
	}
	matchedRules, err := marshalNullable(e.MatchedRules)
	if err != nil {
		return err
	}
	scores, err := marshalNullable(e.Scores)
	if err != nil {
		return err
	}
	decisions, err := marshalNullable(e.Decisions)
	if err != nil {
		return err
	}
	hashes, err := marshalNullable(e.ContentHashes)
	if err != nil {
		return err
	}
	synthesis, err := marshalNullable(e.Synthesis)
	if err != nil {
		return err
	}
	hero, err := marshalNullable(e.Hero)
	if err != nil {
		return err
	}
	timings, err := marshalNullable(e.Timings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO discovery_audits
			(run_id, patch_id, step, status, provider, query, candidate_url, final_url,
			 http_meta, extracted_meta, matched_rules, scores, decisions, content_hashes,
			 synthesis, hero, timings, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at;
	`
	err = r.db.QueryRow(ctx, query,
		e.RunID, e.PatchID, e.Step, e.Status,
		e.Provider, e.Query, e.CandidateURL, e.FinalURL,
		httpMeta, extractedMeta, matchedRules, scores, decisions, hashes,
		synthesis, hero, timings, e.ErrorDetail,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit entry run=%s step=%s: %w", e.RunID, e.Step, err)
	}
	return nil
}

// ListByRun returns a run's entries ordered by creation time.
func (r *AuditRepoImpl) ListByRun(ctx context.Context, runID string) ([]*entity.AuditEntry, error) {
	return r.list(ctx, `WHERE run_id = $1`, runID)
}

// ListByPatch returns entries across all runs of a patch, ordered by
// creation time.
func (r *AuditRepoImpl) ListByPatch(ctx context.Context, patchID string) ([]*entity.AuditEntry, error) {
	return r.list(ctx, `WHERE patch_id = $1`, patchID)
}

func (r *AuditRepoImpl) list(ctx context.Context, where string, arg any) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, run_id, patch_id, step, status, created_at,
		       COALESCE(provider, ''), COALESCE(query, ''),
		       COALESCE(candidate_url, ''), COALESCE(final_url, ''),
		       http_meta, extracted_meta, matched_rules, scores, decisions,
		       content_hashes, synthesis, hero, timings,
		       COALESCE(error_detail, '')
		FROM discovery_audits ` + where + `
		ORDER BY created_at ASC, id ASC;
	`
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanAudit(rows pgx.Rows) (*entity.AuditEntry, error) {
	var e entity.AuditEntry
	var httpMeta, extractedMeta, matchedRules, scores, decisions, hashes, synthesis, hero, timings []byte
	err := rows.Scan(
		&e.ID, &e.RunID, &e.PatchID, &e.Step, &e.Status, &e.CreatedAt,
		&e.Provider, &e.Query, &e.CandidateURL, &e.FinalURL,
		&httpMeta, &extractedMeta, &matchedRules, &scores, &decisions,
		&hashes, &synthesis, &hero, &timings,
		&e.ErrorDetail,
	)
	if err != nil {
		return nil, err
	}
	for _, field := range []struct {
		raw []byte
		dst any
	}{
		{httpMeta, &e.HTTPMeta},
		{extractedMeta, &e.ExtractedMeta},
		{matchedRules, &e.MatchedRules},
		{scores, &e.Scores},
		{decisions, &e.Decisions},
		{hashes, &e.ContentHashes},
		{synthesis, &e.Synthesis},
		{hero, &e.Hero},
		{timings, &e.Timings},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
	}
	return &e, nil
}

// marshalNullable returns nil (SQL NULL) for empty payload fields so absent
// data is stored as NULL rather than empty JSON.
func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]float64:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]int64:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return data, nil
}
