package usecase

import (
	"context"

	"github.com/user/discovery-service/internal/entity"
	"github.com/user/discovery-service/internal/repository"
)

// RunQuery is the synchronous read path for run status and audit trails. It
// never blocks on in-progress pipeline writes; callers see whatever has been
// durably persisted so far.
type RunQuery interface {
	GetRunSummary(ctx context.Context, runID string) (*entity.Run, error)
	ListRunAudits(ctx context.Context, runID string) ([]*entity.AuditEntry, error)
	ListPatchAudits(ctx context.Context, patchID string) ([]*entity.AuditEntry, error)
}

type runQuery struct {
	runs   repository.RunRepository
	audits repository.AuditRepository
}

// NewRunQuery creates the run/audit read-side use case.
func NewRunQuery(runs repository.RunRepository, audits repository.AuditRepository) RunQuery {
	return &runQuery{runs: runs, audits: audits}
}

func (q *runQuery) GetRunSummary(ctx context.Context, runID string) (*entity.Run, error) {
	return q.runs.FindByID(ctx, runID)
}

func (q *runQuery) ListRunAudits(ctx context.Context, runID string) ([]*entity.AuditEntry, error) {
	return q.audits.ListByRun(ctx, runID)
}

func (q *runQuery) ListPatchAudits(ctx context.Context, patchID string) ([]*entity.AuditEntry, error) {
	return q.audits.ListByPatch(ctx, patchID)
}
