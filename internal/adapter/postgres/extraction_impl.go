package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/discovery-service/internal/entity"
	"github.com/user/discovery-service/internal/repository"
)

const uniqueViolation = "23505"

// ExtractionRepoImpl implements ExtractionRepository on PostgreSQL.
type ExtractionRepoImpl struct {
	db *pgxpool.Pool
}

// NewExtractionRepo creates a new ExtractionRepoImpl.
func NewExtractionRepo(db *pgxpool.Pool) *ExtractionRepoImpl {
	return &ExtractionRepoImpl{db: db}
}

// Create inserts a new extraction. The unique constraint on page_id enforces
// the one-extraction-per-page invariant; a violation surfaces as
// ErrDuplicateExtraction with the original row left untouched.
func (r *ExtractionRepoImpl) Create(ctx context.Context, ex *entity.Extraction) error {
	factsJSON, err := json.Marshal(ex.TopFacts)
	if err != nil {
		return fmt.Errorf("marshal top facts: %w", err)
	}
	quotesJSON, err := json.Marshal(ex.Quotes)
	if err != nil {
		return fmt.Errorf("marshal quotes: %w", err)
	}
	var flagsJSON []byte
	if ex.ControversyFlags != nil {
		if flagsJSON, err = json.Marshal(ex.ControversyFlags); err != nil {
			return fmt.Errorf("marshal controversy flags: %w", err)
		}
	}
	metaJSON, err := json.Marshal(ex.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO crawler_extractions
			(page_id, topic, source_url, title, top_facts, quotes, summary, controversy_flags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at;
	`
	err = r.db.QueryRow(ctx, query,
		ex.PageID,
		ex.Topic,
		ex.SourceURL,
		ex.Title,
		factsJSON,
		quotesJSON,
		ex.Summary,
		flagsJSON,
		metaJSON,
	).Scan(&ex.ID, &ex.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateExtraction
		}
		return fmt.Errorf("insert extraction for page %d: %w", ex.PageID, err)
	}
	return nil
}

// FindByPageID retrieves the extraction for a page.
func (r *ExtractionRepoImpl) FindByPageID(ctx context.Context, pageID int64) (*entity.Extraction, error) {
	query := `
		SELECT id, page_id, topic, source_url, title, top_facts, quotes, summary,
		       controversy_flags, metadata, created_at
		FROM crawler_extractions
		WHERE page_id = $1;
	`
	row := r.db.QueryRow(ctx, query, pageID)

	var ex entity.Extraction
	var factsJSON, quotesJSON, flagsJSON, metaJSON []byte
	err := row.Scan(
		&ex.ID,
		&ex.PageID,
		&ex.Topic,
		&ex.SourceURL,
		&ex.Title,
		&factsJSON,
		&quotesJSON,
		&ex.Summary,
		&flagsJSON,
		&metaJSON,
		&ex.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrExtractionNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(factsJSON, &ex.TopFacts); err != nil {
		return nil, fmt.Errorf("unmarshal top facts: %w", err)
	}
	if err := json.Unmarshal(quotesJSON, &ex.Quotes); err != nil {
		return nil, fmt.Errorf("unmarshal quotes: %w", err)
	}
	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &ex.ControversyFlags); err != nil {
			return nil, fmt.Errorf("unmarshal controversy flags: %w", err)
		}
	}
	if err := json.Unmarshal(metaJSON, &ex.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &ex, nil
}
