package repository

import (
	"context"
	"errors"
	"time"
)

// Crawl failure classes. Adapters map transport-level failures onto these so
// the orchestrator can record a stable reason code.
var (
	ErrCrawlTimeout     = errors.New("crawl timed out")
	ErrNavigationFailed = errors.New("navigation failed")
)

// Candidate is one URL proposed by the discovery provider for a topic.
type Candidate struct {
	URL      string
	Title    string
	Snippet  string
	Provider string
}

// DiscoveryProvider returns candidate URLs for a topic, bounded by limit.
// When allowedDomains is non-empty, only candidates from those domains are
// returned.
type DiscoveryProvider interface {
	Discover(ctx context.Context, topic string, limit int, allowedDomains []string) ([]Candidate, error)
}

// CrawlResult is the outcome of fetching one page. A result is returned
// whenever an HTTP response was received, including non-2xx statuses; errors
// are reserved for transport-level failures.
type CrawlResult struct {
	URL           string
	FinalURL      string
	CanonicalURL  string
	Title         string
	RawContent    string
	ExtractedText string
	HTTPStatus    int
	ByteSize      int64
	Headers       map[string]string
	Elapsed       time.Duration
}

// CrawlProvider fetches a URL and extracts its textual content.
type CrawlProvider interface {
	Crawl(ctx context.Context, url string) (*CrawlResult, error)
}

// ExtractInput is the page-level input handed to the LLM extraction step.
type ExtractInput struct {
	Topic string
	URL   string
	Title string
	Text  string
}

// ExtractResult is the structured output of the LLM extraction step.
type ExtractResult struct {
	Title            string
	TopFacts         []string
	Quotes           []string
	Summary          string
	ControversyFlags []string
	Confidence       float64
	Metadata         map[string]any
	Elapsed          time.Duration
}

// ExtractionProvider turns page text into structured facts via an LLM call.
type ExtractionProvider interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractResult, error)
}

// HeroInput describes the content a hero image/media should be selected for.
type HeroInput struct {
	Topic   string
	URL     string
	Title   string
	Summary string
}

// HeroResult identifies the representative media chosen for the content.
type HeroResult struct {
	MediaURL string
	Kind     string
	Source   string
	Alt      string
}

// HeroProvider selects representative media for synthesized content.
type HeroProvider interface {
	SelectHero(ctx context.Context, input HeroInput) (*HeroResult, error)
}
