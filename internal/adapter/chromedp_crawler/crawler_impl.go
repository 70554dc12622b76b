package chromedp_crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/discovery-service/internal/repository"
	"github.com/user/discovery-service/pkg/htmltext"
)

// ChromedpCrawler implements CrawlProvider with a headless browser, for
// pages that need JavaScript rendering.
type ChromedpCrawler struct {
	allocatorPool *sync.Pool
	timeout       time.Duration
}

// NewChromedpCrawler creates a browser-backed crawl provider.
func NewChromedpCrawler(maxConcurrency int, pageLoadTimeout time.Duration) (*ChromedpCrawler, error) {
	pool := &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(`Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36`),
			)
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
			return allocCtx
		},
	}

	for i := 0; i < maxConcurrency; i++ {
		allocCtx := pool.Get().(context.Context)
		pool.Put(allocCtx)
	}

	return &ChromedpCrawler{
		allocatorPool: pool,
		timeout:       pageLoadTimeout,
	}, nil
}

// Crawl renders a URL in a headless browser and extracts its content. The
// document response status is captured from network events.
func (c *ChromedpCrawler) Crawl(ctx context.Context, url string) (*repository.CrawlResult, error) {
	allocCtx := c.allocatorPool.Get().(context.Context)
	defer c.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	taskCtx, cancel = context.WithTimeout(taskCtx, c.timeout)
	defer cancel()

	var mu sync.Mutex
	var status int64
	var finalURL string
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		if status == 0 {
			status = resp.Response.Status
			finalURL = resp.Response.URL
		}
		mu.Unlock()
	})

	var html string
	start := time.Now()
	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &html),
	)
	elapsed := time.Since(start)

	if err != nil {
		if taskCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", repository.ErrCrawlTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
	}

	mu.Lock()
	httpStatus := int(status)
	final := finalURL
	mu.Unlock()
	if httpStatus == 0 {
		httpStatus = 200
	}
	if final == "" {
		final = url
	}

	result := &repository.CrawlResult{
		URL:        url,
		FinalURL:   final,
		HTTPStatus: httpStatus,
		ByteSize:   int64(len(html)),
		RawContent: html,
		Elapsed:    elapsed,
	}

	if httpStatus < 400 {
		content, err := htmltext.Extract([]byte(html), final)
		if err == nil {
			result.Title = content.Title
			result.CanonicalURL = content.CanonicalURL
			result.ExtractedText = content.Text
		}
	}
	return result, nil
}
