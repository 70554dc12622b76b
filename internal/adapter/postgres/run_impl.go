package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/discovery-service/internal/entity"
	"github.com/user/discovery-service/internal/repository"
)

// RunRepoImpl implements RunRepository on PostgreSQL.
type RunRepoImpl struct {
	db *pgxpool.Pool
}

// NewRunRepo creates a new RunRepoImpl.
func NewRunRepo(db *pgxpool.Pool) *RunRepoImpl {
	return &RunRepoImpl{db: db}
}

// Create inserts a new run in status running.
func (r *RunRepoImpl) Create(ctx context.Context, patchID string) (*entity.Run, error) {
	run := &entity.Run{
		ID:      uuid.NewString(),
		PatchID: patchID,
		Status:  entity.RunStatusRunning,
	}
	query := `
		INSERT INTO discovery_runs (id, patch_id, status)
		VALUES ($1, $2, 'running')
		RETURNING started_at;
	`
	if err := r.db.QueryRow(ctx, query, run.ID, patchID).Scan(&run.StartedAt); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FindByID retrieves a run, or ErrRunNotFound.
func (r *RunRepoImpl) FindByID(ctx context.Context, runID string) (*entity.Run, error) {
	query := `
		SELECT id, patch_id, started_at, ended_at, status, metrics
		FROM discovery_runs
		WHERE id = $1;
	`
	var run entity.Run
	var status string
	var metricsJSON []byte
	err := r.db.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.PatchID,
		&run.StartedAt,
		&run.EndedAt,
		&status,
		&metricsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRunNotFound
		}
		return nil, err
	}
	run.Status = entity.RunStatus(status)
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &run.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal run metrics: %w", err)
		}
	}
	return &run, nil
}

// Finalize moves a running run to a terminal status exactly once. The status
// guard in the WHERE clause makes a second attempt a no-op, reported as
// ErrRunFinalized.
func (r *RunRepoImpl) Finalize(ctx context.Context, runID string, status entity.RunStatus, metrics entity.RunMetrics) error {
	if !status.Terminal() {
		return fmt.Errorf("finalize run %s: %q is not a terminal status", runID, status)
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshal run metrics: %w", err)
	}

	query := `
		UPDATE discovery_runs
		SET status = $2, metrics = $3, ended_at = NOW()
		WHERE id = $1 AND status = 'running';
	`
	tag, err := r.db.Exec(ctx, query, runID, string(status), metricsJSON)
	if err != nil {
		return fmt.Errorf("finalize run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, runID); err != nil {
			return err
		}
		return repository.ErrRunFinalized
	}
	return nil
}
