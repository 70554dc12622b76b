package repository

import (
	"context"
	"errors"

	"github.com/user/discovery-service/internal/entity"
)

var (
	// ErrRunNotFound is returned when a run id does not exist.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunFinalized is returned on an attempt to finalize a run that has
	// already reached a terminal status.
	ErrRunFinalized = errors.New("run already finalized")
)

// RunRepository tracks discovery run lifecycles. A run is created in status
// running and finalized exactly once.
type RunRepository interface {
	Create(ctx context.Context, patchID string) (*entity.Run, error)
	FindByID(ctx context.Context, runID string) (*entity.Run, error)
	// Finalize sets ended_at, the terminal status and aggregate metrics.
	// A second finalization attempt returns ErrRunFinalized.
	Finalize(ctx context.Context, runID string, status entity.RunStatus, metrics entity.RunMetrics) error
}
