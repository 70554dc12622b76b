package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/discovery-service/internal/entity"
	"github.com/user/discovery-service/internal/repository"
	"github.com/user/discovery-service/pkg/metrics"
	"github.com/user/discovery-service/pkg/utils"
)

// ErrInvalidTopic is returned by StartRun when the topic is missing or blank.
// The run is never created in that case.
var ErrInvalidTopic = errors.New("topic must be a non-empty string")

const (
	// freshnessWindow is how long a crawled page is considered fresh enough
	// to skip re-crawling.
	freshnessWindow = 48 * time.Hour
	// seenHashExpiry bounds the per-topic content-hash dedup window.
	seenHashExpiry = 24 * time.Hour
)

// StartRunParams are the caller-supplied bounds for one discovery run.
type StartRunParams struct {
	Topic          string
	PatchID        string
	Duration       time.Duration
	MaxPages       int
	AllowedDomains []string
}

// RunStarter triggers discovery runs. The call acknowledges immediately; the
// pipeline executes in the background.
type RunStarter interface {
	StartRun(ctx context.Context, params StartRunParams) (string, error)
}

// Options bound the orchestrator's resource usage.
type Options struct {
	Workers         int
	CrawlRatePerSec float64
	ProviderTimeout time.Duration
	DefaultDuration time.Duration
	DefaultMaxPages int
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.CrawlRatePerSec <= 0 {
		o.CrawlRatePerSec = 2.0
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = 60 * time.Second
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 10 * time.Minute
	}
	if o.DefaultMaxPages <= 0 {
		o.DefaultMaxPages = 25
	}
}

// Orchestrator drives the discovery pipeline: discover candidates, crawl,
// deduplicate, extract, score, and audit every step.
type Orchestrator struct {
	pages       repository.PageRepository
	extractions repository.ExtractionRepository
	runs        repository.RunRepository
	audits      repository.AuditRepository
	seenHashes  repository.SeenHashRepository
	discovery   repository.DiscoveryProvider
	crawler     repository.CrawlProvider
	extractor   repository.ExtractionProvider
	hero        repository.HeroProvider
	opts        Options
	wg          sync.WaitGroup
}

// NewOrchestrator wires the pipeline's stores and providers.
func NewOrchestrator(
	pages repository.PageRepository,
	extractions repository.ExtractionRepository,
	runs repository.RunRepository,
	audits repository.AuditRepository,
	seenHashes repository.SeenHashRepository,
	discovery repository.DiscoveryProvider,
	crawler repository.CrawlProvider,
	extractor repository.ExtractionProvider,
	hero repository.HeroProvider,
	opts Options,
) *Orchestrator {
	opts.applyDefaults()
	return &Orchestrator{
		pages:       pages,
		extractions: extractions,
		runs:        runs,
		audits:      audits,
		seenHashes:  seenHashes,
		discovery:   discovery,
		crawler:     crawler,
		extractor:   extractor,
		hero:        hero,
		opts:        opts,
	}
}

// StartRun validates the request, creates the run record and launches the
// pipeline on a supervised background goroutine. It returns the run id
// without waiting for pipeline completion.
func (o *Orchestrator) StartRun(ctx context.Context, p StartRunParams) (string, error) {
	if strings.TrimSpace(p.Topic) == "" {
		return "", ErrInvalidTopic
	}
	if p.Duration <= 0 {
		p.Duration = o.opts.DefaultDuration
	}
	if p.MaxPages <= 0 {
		p.MaxPages = o.opts.DefaultMaxPages
	}

	run, err := o.runs.Create(ctx, p.PatchID)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	metrics.RunsStarted.Inc()
	slog.Info("discovery run started",
		"run_id", run.ID,
		"topic", p.Topic,
		"max_pages", p.MaxPages,
		"duration_budget", p.Duration.String(),
	)

	o.wg.Add(1)
	go o.execute(run, p)

	return run.ID, nil
}

// Wait blocks until all in-flight runs have finalized. Used during shutdown
// and in tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// execute runs the full pipeline for one run. It is the error boundary for
// the background task: any uncaught panic finalizes the run as failed.
func (o *Orchestrator) execute(run *entity.Run, p StartRunParams) {
	defer o.wg.Done()

	// Persistence must outlive the dispatch deadline so bookkeeping for
	// in-flight work still lands after the budget expires.
	ctx := context.Background()
	start := time.Now()
	deadline := start.Add(p.Duration)

	var counters runCounters
	defer func() {
		if r := recover(); r != nil {
			slog.Error("discovery run panicked", "run_id", run.ID, "panic", r)
			m := counters.snapshot(start)
			m.Error = fmt.Sprintf("panic: %v", r)
			o.finalize(ctx, run, entity.RunStatusFailed, m)
		}
	}()

	candidates, discoverErr := o.discoverCandidates(ctx, run, p)
	if discoverErr != nil {
		m := counters.snapshot(start)
		m.Error = fmt.Sprintf("candidate discovery failed: %v", discoverErr)
		o.finalize(ctx, run, entity.RunStatusFailed, m)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(o.opts.CrawlRatePerSec), 1)
	sem := make(chan struct{}, o.opts.Workers)
	var wg sync.WaitGroup

	dispatched := 0
	for _, cand := range candidates {
		if dispatched >= p.MaxPages {
			break
		}
		// Acquire the worker slot before the deadline check so the decision
		// is made at dispatch time, not while queued behind busy workers.
		sem <- struct{}{}
		if time.Now().After(deadline) {
			<-sem
			slog.Info("duration budget exhausted, draining in-flight work",
				"run_id", run.ID, "dispatched", dispatched)
			break
		}
		dispatched++
		wg.Add(1)
		go func(c repository.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("candidate processing panicked",
						"run_id", run.ID, "url", c.URL, "panic", r)
					counters.failed.Add(1)
					o.appendAudit(ctx, &entity.AuditEntry{
						RunID:        run.ID,
						PatchID:      run.PatchID,
						Step:         entity.StepCrawl,
						Status:       entity.AuditError,
						CandidateURL: c.URL,
						ErrorDetail:  fmt.Sprintf("panic: %v", r),
					})
				}
			}()
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			o.processCandidate(ctx, run, p, c, &counters)
		}(cand)
	}
	wg.Wait()

	o.finalize(ctx, run, entity.RunStatusCompleted, counters.snapshot(start))
}

func (o *Orchestrator) discoverCandidates(ctx context.Context, run *entity.Run, p StartRunParams) ([]repository.Candidate, error) {
	discoverCtx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	defer cancel()

	discoverStart := time.Now()
	candidates, err := o.discovery.Discover(discoverCtx, p.Topic, p.MaxPages, p.AllowedDomains)
	elapsed := time.Since(discoverStart)
	metrics.StepDuration.WithLabelValues(entity.StepDiscover).Observe(elapsed.Seconds())

	entry := &entity.AuditEntry{
		RunID:   run.ID,
		PatchID: run.PatchID,
		Step:    entity.StepDiscover,
		Status:  entity.AuditOK,
		Query:   p.Topic,
		Decisions: map[string]any{
			"candidates": len(candidates),
			"max_pages":  p.MaxPages,
		},
		Timings: map[string]int64{"discover_ms": elapsed.Milliseconds()},
	}
	if len(candidates) > 0 {
		entry.Provider = candidates[0].Provider
	}
	if err != nil {
		entry.Status = entity.AuditError
		entry.ErrorDetail = err.Error()
	}
	o.appendAudit(ctx, entry)
	return candidates, err
}

// processCandidate takes one candidate URL through crawl, dedup, extraction,
// scoring and hero selection. Failures here are isolated: they are recorded
// on the page and audited, never propagated to the run.
func (o *Orchestrator) processCandidate(ctx context.Context, run *entity.Run, p StartRunParams, cand repository.Candidate, counters *runCounters) {
	page, err := o.pages.FindOrCreate(ctx, cand.URL, utils.DomainOf(cand.URL))
	if err != nil {
		counters.failed.Add(1)
		metrics.PagesTotal.WithLabelValues("failed").Inc()
		o.appendAudit(ctx, &entity.AuditEntry{
			RunID:        run.ID,
			PatchID:      run.PatchID,
			Step:         entity.StepCrawl,
			Status:       entity.AuditError,
			CandidateURL: cand.URL,
			ErrorDetail:  fmt.Sprintf("page store: %v", err),
		})
		return
	}

	if pageIsFresh(page) {
		counters.skipped.Add(1)
		metrics.PagesTotal.WithLabelValues("skipped").Inc()
		o.appendAudit(ctx, &entity.AuditEntry{
			RunID:        run.ID,
			PatchID:      run.PatchID,
			Step:         entity.StepCrawl,
			Status:       entity.AuditSkipped,
			CandidateURL: cand.URL,
			Decisions:    map[string]any{"skip_reason": entity.ReasonFreshCopy},
		})
		return
	}

	res := o.crawlCandidate(ctx, run, cand, counters)
	if res == nil {
		return
	}

	hash := utils.HashContent(res.ExtractedText)
	now := time.Now()
	page, err = o.pages.Update(ctx, cand.URL, repository.PageUpdate{
		Status:          entity.PageStatusCrawled,
		LastProcessedAt: now,
		ContentHash:     &hash,
		ByteSize:        &res.ByteSize,
		HTTPStatus:      &res.HTTPStatus,
		RawContent:      &res.RawContent,
		ExtractedText:   &res.ExtractedText,
		CanonicalURL:    &res.CanonicalURL,
	})
	if err != nil {
		counters.failed.Add(1)
		metrics.PagesTotal.WithLabelValues("failed").Inc()
		o.appendAudit(ctx, &entity.AuditEntry{
			RunID:        run.ID,
			PatchID:      run.PatchID,
			Step:         entity.StepCrawl,
			Status:       entity.AuditError,
			CandidateURL: cand.URL,
			ErrorDetail:  fmt.Sprintf("page store: %v", err),
		})
		return
	}
	counters.crawled.Add(1)
	o.appendAudit(ctx, &entity.AuditEntry{
		RunID:        run.ID,
		PatchID:      run.PatchID,
		Step:         entity.StepCrawl,
		Status:       entity.AuditOK,
		Provider:     cand.Provider,
		CandidateURL: cand.URL,
		FinalURL:     res.FinalURL,
		HTTPMeta: map[string]any{
			"status": res.HTTPStatus,
			"bytes":  res.ByteSize,
		},
		ContentHashes: []string{hash},
		Timings:       map[string]int64{"crawl_ms": res.Elapsed.Milliseconds()},
	})

	if o.isDuplicateContent(ctx, run, p, cand, hash, now) {
		counters.skipped.Add(1)
		metrics.PagesTotal.WithLabelValues("skipped").Inc()
		return
	}

	exRes := o.extractCandidate(ctx, run, p, cand, page, res, counters)

	scores, matched := scoreContent(ScoreInput{Topic: p.Topic, Page: page, Extraction: exRes})
	o.appendAudit(ctx, &entity.AuditEntry{
		RunID:        run.ID,
		PatchID:      run.PatchID,
		Step:         entity.StepScore,
		Status:       entity.AuditOK,
		CandidateURL: cand.URL,
		Scores: map[string]float64{
			"quality":   scores.Quality,
			"relevance": scores.Relevance,
		},
		MatchedRules: matched,
	})

	if exRes != nil {
		o.selectHero(ctx, run, p, cand, res, exRes)
	}
	metrics.PagesTotal.WithLabelValues("crawled").Inc()
}

// crawlCandidate fetches one page. On failure the page row is marked failed
// with a reason code and nil is returned.
func (o *Orchestrator) crawlCandidate(ctx context.Context, run *entity.Run, cand repository.Candidate, counters *runCounters) *repository.CrawlResult {
	crawlCtx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	defer cancel()

	crawlStart := time.Now()
	res, err := o.crawler.Crawl(crawlCtx, cand.URL)
	metrics.StepDuration.WithLabelValues(entity.StepCrawl).Observe(time.Since(crawlStart).Seconds())

	if err != nil {
		reason := crawlFailureReason(err)
		o.markPageFailed(ctx, cand.URL, reason, nil)
		counters.failed.Add(1)
		metrics.PagesTotal.WithLabelValues("failed").Inc()
		o.appendAudit(ctx, &entity.AuditEntry{
			RunID:        run.ID,
			PatchID:      run.PatchID,
			Step:         entity.StepCrawl,
			Status:       entity.AuditError,
			Provider:     cand.Provider,
			CandidateURL: cand.URL,
			Decisions:    map[string]any{"failure_reason": reason},
			ErrorDetail:  err.Error(),
		})
		return nil
	}

	if res.HTTPStatus >= 400 {
		reason := reasonForStatus(res.HTTPStatus)
		o.markPageFailed(ctx, cand.URL, reason, &res.HTTPStatus)
		counters.failed.Add(1)
		metrics.PagesTotal.WithLabelValues("failed").Inc()
		o.appendAudit(ctx, &entity.AuditEntry{
			RunID:        run.ID,
			PatchID:      run.PatchID,
			Step:         entity.StepCrawl,
			Status:       entity.AuditError,
			Provider:     cand.Provider,
			CandidateURL: cand.URL,
			FinalURL:     res.FinalURL,
			HTTPMeta:     map[string]any{"status": res.HTTPStatus},
			Decisions:    map[string]any{"failure_reason": reason},
			ErrorDetail:  fmt.Sprintf("HTTP %d", res.HTTPStatus),
		})
		return nil
	}
	return res
}

// isDuplicateContent claims the content hash for the topic. The claim is a
// single atomic operation so concurrent workers crawling identical content
// agree on one winner; on a collision the page is marked skipped and the
// decision audited.
func (o *Orchestrator) isDuplicateContent(ctx context.Context, run *entity.Run, p StartRunParams, cand repository.Candidate, hash string, now time.Time) bool {
	seen, err := o.seenHashes.MarkIfUnseen(ctx, p.Topic, hash, seenHashExpiry)
	if err != nil {
		slog.Warn("seen-hash claim failed, treating content as new",
			"run_id", run.ID, "url", cand.URL, "error", err)
		return false
	}
	if !seen {
		return false
	}

	reason := entity.ReasonDuplicateContent
	if _, err := o.pages.Update(ctx, cand.URL, repository.PageUpdate{
		Status:          entity.PageStatusSkipped,
		LastProcessedAt: now,
		FailureReason:   &reason,
	}); err != nil {
		slog.Error("failed to mark page as duplicate",
			"run_id", run.ID, "url", cand.URL, "error", err)
	}
	o.appendAudit(ctx, &entity.AuditEntry{
		RunID:         run.ID,
		PatchID:       run.PatchID,
		Step:          entity.StepDedup,
		Status:        entity.AuditSkipped,
		CandidateURL:  cand.URL,
		ContentHashes: []string{hash},
		Decisions:     map[string]any{"skip_reason": entity.ReasonDuplicateContent},
	})
	return true
}

// extractCandidate runs the LLM extraction step and persists the result.
// It returns the extraction output for scoring, or nil when extraction
// failed or the page already had one.
func (o *Orchestrator) extractCandidate(ctx context.Context, run *entity.Run, p StartRunParams, cand repository.Candidate, page *entity.Page, res *repository.CrawlResult, counters *runCounters) *repository.ExtractResult {
	exCtx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	defer cancel()

	exStart := time.Now()
	exRes, err := o.extractor.Extract(exCtx, repository.ExtractInput{
		Topic: p.Topic,
		URL:   res.FinalURL,
		Title: res.Title,
		Text:  res.ExtractedText,
	})
	elapsed := time.Since(exStart)
	metrics.StepDuration.WithLabelValues(entity.StepExtract).Observe(elapsed.Seconds())

	if err != nil {
		o.appendAudit(ctx, &entity.AuditEntry{
			RunID:        run.ID,
			PatchID:      run.PatchID,
			Step:         entity.StepExtract,
			Status:       entity.AuditError,
			CandidateURL: cand.URL,
			Timings:      map[string]int64{"extract_ms": elapsed.Milliseconds()},
			ErrorDetail:  err.Error(),
		})
		return nil
	}

	extraction := &entity.Extraction{
		PageID:           page.ID,
		Topic:            p.Topic,
		SourceURL:        res.FinalURL,
		Title:            exRes.Title,
		TopFacts:         exRes.TopFacts,
		Quotes:           exRes.Quotes,
		Summary:          exRes.Summary,
		ControversyFlags: exRes.ControversyFlags,
		Metadata:         exRes.Metadata,
	}
	if err := o.extractions.Create(ctx, extraction); err != nil {
		if errors.Is(err, repository.ErrDuplicateExtraction) {
			o.appendAudit(ctx, &entity.AuditEntry{
				RunID:        run.ID,
				PatchID:      run.PatchID,
				Step:         entity.StepExtract,
				Status:       entity.AuditSkipped,
				CandidateURL: cand.URL,
				Decisions:    map[string]any{"skip_reason": "already_extracted"},
			})
			return exRes
		}
		o.appendAudit(ctx, &entity.AuditEntry{
			RunID:        run.ID,
			PatchID:      run.PatchID,
			Step:         entity.StepExtract,
			Status:       entity.AuditError,
			CandidateURL: cand.URL,
			ErrorDetail:  fmt.Sprintf("extraction store: %v", err),
		})
		return exRes
	}

	counters.extractions.Add(1)
	o.appendAudit(ctx, &entity.AuditEntry{
		RunID:        run.ID,
		PatchID:      run.PatchID,
		Step:         entity.StepExtract,
		Status:       entity.AuditOK,
		CandidateURL: cand.URL,
		ExtractedMeta: map[string]any{
			"facts":      len(exRes.TopFacts),
			"quotes":     len(exRes.Quotes),
			"confidence": exRes.Confidence,
		},
		Timings: map[string]int64{"extract_ms": elapsed.Milliseconds()},
	})
	return exRes
}

func (o *Orchestrator) selectHero(ctx context.Context, run *entity.Run, p StartRunParams, cand repository.Candidate, res *repository.CrawlResult, exRes *repository.ExtractResult) {
	heroCtx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	defer cancel()

	heroStart := time.Now()
	heroRes, err := o.hero.SelectHero(heroCtx, repository.HeroInput{
		Topic:   p.Topic,
		URL:     res.FinalURL,
		Title:   exRes.Title,
		Summary: exRes.Summary,
	})
	elapsed := time.Since(heroStart)
	metrics.StepDuration.WithLabelValues(entity.StepHero).Observe(elapsed.Seconds())

	entry := &entity.AuditEntry{
		RunID:        run.ID,
		PatchID:      run.PatchID,
		Step:         entity.StepHero,
		Status:       entity.AuditOK,
		CandidateURL: cand.URL,
		Timings:      map[string]int64{"hero_ms": elapsed.Milliseconds()},
	}
	if err != nil {
		entry.Status = entity.AuditError
		entry.ErrorDetail = err.Error()
	} else {
		entry.Hero = map[string]any{
			"media_url": heroRes.MediaURL,
			"kind":      heroRes.Kind,
			"source":    heroRes.Source,
			"alt":       heroRes.Alt,
		}
	}
	o.appendAudit(ctx, entry)
}

// finalize moves the run to a terminal status. Safe against double
// finalization: a run already finalized is left untouched.
func (o *Orchestrator) finalize(ctx context.Context, run *entity.Run, status entity.RunStatus, m entity.RunMetrics) {
	if err := o.runs.Finalize(ctx, run.ID, status, m); err != nil {
		if errors.Is(err, repository.ErrRunFinalized) {
			return
		}
		slog.Error("failed to finalize run", "run_id", run.ID, "status", status, "error", err)
		return
	}
	metrics.RunsFinalized.WithLabelValues(string(status)).Inc()

	entry := &entity.AuditEntry{
		RunID:       run.ID,
		PatchID:     run.PatchID,
		Step:        entity.StepFinalize,
		Status:      entity.AuditOK,
		Decisions:   map[string]any{"run_status": string(status)},
		Timings:     map[string]int64{"run_ms": m.DurationMS},
		ErrorDetail: m.Error,
	}
	if status == entity.RunStatusFailed {
		entry.Status = entity.AuditError
	}
	o.appendAudit(ctx, entry)

	slog.Info("discovery run finalized",
		"run_id", run.ID,
		"status", status,
		"pages_crawled", m.PagesCrawled,
		"pages_skipped", m.PagesSkipped,
		"pages_failed", m.PagesFailed,
		"extractions", m.Extractions,
		"duration_ms", m.DurationMS,
	)
}

func (o *Orchestrator) markPageFailed(ctx context.Context, url, reason string, httpStatus *int) {
	if _, err := o.pages.Update(ctx, url, repository.PageUpdate{
		Status:          entity.PageStatusFailed,
		LastProcessedAt: time.Now(),
		FailureReason:   &reason,
		HTTPStatus:      httpStatus,
	}); err != nil {
		slog.Error("failed to record page failure", "url", url, "error", err)
	}
}

// appendAudit persists one entry. Append failures are logged, never
// propagated: a broken audit write must not abort the pipeline.
func (o *Orchestrator) appendAudit(ctx context.Context, entry *entity.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := o.audits.Append(ctx, entry); err != nil {
		slog.Error("failed to append audit entry",
			"run_id", entry.RunID, "step", entry.Step, "error", err)
	}
}

func pageIsFresh(page *entity.Page) bool {
	return page.Status == entity.PageStatusCrawled &&
		page.LastProcessedAt != nil &&
		time.Since(*page.LastProcessedAt) < freshnessWindow
}

func crawlFailureReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrCrawlTimeout):
		return entity.ReasonTimeout
	case errors.Is(err, repository.ErrNavigationFailed):
		return entity.ReasonNavigation
	default:
		return "crawl_error"
	}
}

func reasonForStatus(status int) string {
	switch status {
	case 401, 402, 403, 451:
		return entity.ReasonRestricted
	default:
		return fmt.Sprintf("http_%d", status)
	}
}

type runCounters struct {
	crawled     atomic.Int64
	skipped     atomic.Int64
	failed      atomic.Int64
	extractions atomic.Int64
}

func (c *runCounters) snapshot(start time.Time) entity.RunMetrics {
	return entity.RunMetrics{
		PagesCrawled: int(c.crawled.Load()),
		PagesSkipped: int(c.skipped.Load()),
		PagesFailed:  int(c.failed.Load()),
		Extractions:  int(c.extractions.Load()),
		DurationMS:   time.Since(start).Milliseconds(),
	}
}
