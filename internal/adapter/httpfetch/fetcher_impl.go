package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/discovery-service/internal/repository"
	"github.com/user/discovery-service/pkg/htmltext"
)

const (
	maxBodyBytes = 5 * 1024 * 1024
	userAgent    = "DiscoveryPipeline/1.0"
)

// Fetcher implements CrawlProvider over plain HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a crawl provider with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Crawl fetches a URL and extracts its textual content. A result is returned
// for every received response, including non-2xx statuses; errors are
// reserved for transport failures (timeout, DNS, connection refused).
func (f *Fetcher) Crawl(ctx context.Context, url string) (*repository.CrawlResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", repository.ErrCrawlTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", repository.ErrNavigationFailed, err)
	}

	result := &repository.CrawlResult{
		URL:        url,
		FinalURL:   resp.Request.URL.String(),
		HTTPStatus: resp.StatusCode,
		ByteSize:   int64(len(body)),
		RawContent: string(body),
		Headers: map[string]string{
			"Content-Type": resp.Header.Get("Content-Type"),
		},
		Elapsed: time.Since(start),
	}

	if resp.StatusCode < 400 {
		content, err := htmltext.Extract(body, result.FinalURL)
		if err == nil {
			result.Title = content.Title
			result.CanonicalURL = content.CanonicalURL
			result.ExtractedText = content.Text
		}
	}
	return result, nil
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
