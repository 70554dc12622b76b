package repository

import (
	"context"
	"time"

	"github.com/user/discovery-service/internal/entity"
)

// PageUpdate carries the mutable fields of a page for a processing attempt.
// Nil pointer fields leave the stored value untouched.
type PageUpdate struct {
	Status          entity.PageStatus
	LastProcessedAt time.Time
	ContentHash     *string
	ByteSize        *int64
	HTTPStatus      *int
	FailureReason   *string
	RawContent      *string
	ExtractedText   *string
	CanonicalURL    *string
}

// PageRepository is the durable record of crawled pages, keyed by URL.
type PageRepository interface {
	// FindOrCreate returns the page row for url, creating it with
	// status=pending on first sighting. Safe under concurrent creation
	// attempts: at most one logical row per URL ever exists.
	FindOrCreate(ctx context.Context, url, domain string) (*entity.Page, error)
	// Update applies a processing outcome to the page identified by url and
	// returns the updated row.
	Update(ctx context.Context, url string, upd PageUpdate) (*entity.Page, error)
	// FindByURL retrieves a page by its URL.
	FindByURL(ctx context.Context, url string) (*entity.Page, error)
}
