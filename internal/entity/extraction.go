package entity

import "time"

// Extraction mirrors the `crawler_extractions` table. Exactly one extraction
// may exist per page; it is written once after a successful crawl and never
// mutated afterwards.
type Extraction struct {
	ID               int64
	PageID           int64
	Topic            string
	SourceURL        string
	Title            string
	TopFacts         []string
	Quotes           []string
	Summary          string
	ControversyFlags []string
	Metadata         map[string]any
	CreatedAt        time.Time
}
