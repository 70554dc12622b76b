package entity

import "time"

// PageStatus is the crawl lifecycle state of a page.
type PageStatus string

const (
	PageStatusPending PageStatus = "pending"
	PageStatusCrawled PageStatus = "crawled"
	PageStatusFailed  PageStatus = "failed"
	PageStatusSkipped PageStatus = "skipped"
)

// Valid reports whether s is one of the known page statuses.
func (s PageStatus) Valid() bool {
	switch s {
	case PageStatusPending, PageStatusCrawled, PageStatusFailed, PageStatusSkipped:
		return true
	}
	return false
}

// Failure reason codes recorded on pages.
const (
	ReasonDuplicateContent = "duplicate_content"
	ReasonTimeout          = "timeout"
	ReasonNavigation       = "navigation"
	ReasonRestricted       = "restricted"
	ReasonFreshCopy        = "fresh_copy"
)

// Page mirrors the `crawler_pages` table. One row per URL, retained
// indefinitely as crawl history.
type Page struct {
	ID              int64
	URL             string
	Domain          string
	Status          PageStatus
	FirstSeenAt     time.Time
	LastProcessedAt *time.Time
	ContentHash     *string
	ByteSize        int64
	HTTPStatus      int
	FailureReason   string
	RawContent      string
	ExtractedText   string
	CanonicalURL    string
}
