package repository

import (
	"context"
	"errors"

	"github.com/user/discovery-service/internal/entity"
)

var (
	// ErrDuplicateExtraction is returned when an extraction already exists
	// for the target page. Callers must explicitly delete first if
	// re-extraction is desired.
	ErrDuplicateExtraction = errors.New("extraction already exists for page")
	// ErrExtractionNotFound is returned when no extraction exists for a page.
	ErrExtractionNotFound = errors.New("extraction not found")
)

// ExtractionRepository stores structured extraction records, one per page.
type ExtractionRepository interface {
	// Create inserts a new extraction. It fails with ErrDuplicateExtraction
	// if the page already has one, leaving the original untouched.
	Create(ctx context.Context, extraction *entity.Extraction) error
	// FindByPageID retrieves the extraction for a page, or
	// ErrExtractionNotFound.
	FindByPageID(ctx context.Context, pageID int64) (*entity.Extraction, error)
}
