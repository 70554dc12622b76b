package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/discovery-service/internal/entity"
	"github.com/user/discovery-service/internal/repository"
)

const pageColumns = `id, url, domain, status, first_seen_at, last_processed_at,
	content_hash, byte_size, http_status, failure_reason, raw_content,
	extracted_text, canonical_url`

// PageRepoImpl implements PageRepository on PostgreSQL.
type PageRepoImpl struct {
	db *pgxpool.Pool
}

// NewPageRepo creates a new PageRepoImpl.
func NewPageRepo(db *pgxpool.Pool) *PageRepoImpl {
	return &PageRepoImpl{db: db}
}

// FindOrCreate returns the row for url, inserting a pending row on first
// sighting. ON CONFLICT DO NOTHING plus re-select keeps the operation safe
// under concurrent upserts from overlapping runs.
func (r *PageRepoImpl) FindOrCreate(ctx context.Context, url, domain string) (*entity.Page, error) {
	insert := `
		INSERT INTO crawler_pages (url, domain, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (url) DO NOTHING;
	`
	if _, err := r.db.Exec(ctx, insert, url, domain); err != nil {
		return nil, fmt.Errorf("insert page %s: %w", url, err)
	}
	return r.FindByURL(ctx, url)
}

// Update applies a processing outcome. Nil pointer fields keep the stored
// value via COALESCE.
func (r *PageRepoImpl) Update(ctx context.Context, url string, upd repository.PageUpdate) (*entity.Page, error) {
	query := `
		UPDATE crawler_pages SET
			status = $2,
			last_processed_at = $3,
			content_hash = COALESCE($4, content_hash),
			byte_size = COALESCE($5, byte_size),
			http_status = COALESCE($6, http_status),
			failure_reason = COALESCE($7, failure_reason),
			raw_content = COALESCE($8, raw_content),
			extracted_text = COALESCE($9, extracted_text),
			canonical_url = COALESCE($10, canonical_url)
		WHERE url = $1
		RETURNING ` + pageColumns + `;`

	row := r.db.QueryRow(ctx, query,
		url,
		string(upd.Status),
		upd.LastProcessedAt,
		upd.ContentHash,
		upd.ByteSize,
		upd.HTTPStatus,
		upd.FailureReason,
		upd.RawContent,
		upd.ExtractedText,
		upd.CanonicalURL,
	)
	page, err := scanPage(row)
	if err != nil {
		return nil, fmt.Errorf("update page %s: %w", url, err)
	}
	return page, nil
}

// FindByURL retrieves a page by URL. pgx.ErrNoRows is returned when absent.
func (r *PageRepoImpl) FindByURL(ctx context.Context, url string) (*entity.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM crawler_pages WHERE url = $1;`
	return scanPage(r.db.QueryRow(ctx, query, url))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*entity.Page, error) {
	var p entity.Page
	var status string
	err := row.Scan(
		&p.ID,
		&p.URL,
		&p.Domain,
		&status,
		&p.FirstSeenAt,
		&p.LastProcessedAt,
		&p.ContentHash,
		&p.ByteSize,
		&p.HTTPStatus,
		&p.FailureReason,
		&p.RawContent,
		&p.ExtractedText,
		&p.CanonicalURL,
	)
	if err != nil {
		return nil, err
	}
	p.Status = entity.PageStatus(status)
	return &p, nil
}
