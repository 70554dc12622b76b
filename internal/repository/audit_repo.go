package repository

import (
	"context"

	"github.com/user/discovery-service/internal/entity"
)

// AuditRepository is the append-only log of pipeline step events. No update
// or delete operations exist for individual entries; corrections are made by
// appending, never by mutating history.
type AuditRepository interface {
	// Append durably persists an entry before returning.
	Append(ctx context.Context, entry *entity.AuditEntry) error
	// ListByRun returns a run's entries ordered by creation time, which
	// reconstructs the pipeline's decision trail.
	ListByRun(ctx context.Context, runID string) ([]*entity.AuditEntry, error)
	// ListByPatch returns entries across all runs of a patch, ordered by
	// creation time.
	ListByPatch(ctx context.Context, patchID string) ([]*entity.AuditEntry, error)
}
