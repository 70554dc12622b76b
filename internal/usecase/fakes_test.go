package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/discovery-service/internal/entity"
	"github.com/user/discovery-service/internal/repository"
)

// In-memory fakes mirroring the store contracts, shared by the orchestrator
// tests.

type fakePageRepo struct {
	mu     sync.Mutex
	pages  map[string]*entity.Page
	nextID int64
}

func newFakePageRepo() *fakePageRepo {
	return &fakePageRepo{pages: make(map[string]*entity.Page)}
}

func (f *fakePageRepo) FindOrCreate(_ context.Context, url, domain string) (*entity.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pages[url]; ok {
		cp := *p
		return &cp, nil
	}
	f.nextID++
	p := &entity.Page{
		ID:          f.nextID,
		URL:         url,
		Domain:      domain,
		Status:      entity.PageStatusPending,
		FirstSeenAt: time.Now(),
	}
	f.pages[url] = p
	cp := *p
	return &cp, nil
}

func (f *fakePageRepo) Update(_ context.Context, url string, upd repository.PageUpdate) (*entity.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[url]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	p.Status = upd.Status
	t := upd.LastProcessedAt
	p.LastProcessedAt = &t
	if upd.ContentHash != nil {
		p.ContentHash = upd.ContentHash
	}
	if upd.ByteSize != nil {
		p.ByteSize = *upd.ByteSize
	}
	if upd.HTTPStatus != nil {
		p.HTTPStatus = *upd.HTTPStatus
	}
	if upd.FailureReason != nil {
		p.FailureReason = *upd.FailureReason
	}
	if upd.RawContent != nil {
		p.RawContent = *upd.RawContent
	}
	if upd.ExtractedText != nil {
		p.ExtractedText = *upd.ExtractedText
	}
	if upd.CanonicalURL != nil {
		p.CanonicalURL = *upd.CanonicalURL
	}
	cp := *p
	return &cp, nil
}

func (f *fakePageRepo) FindByURL(_ context.Context, url string) (*entity.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[url]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePageRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pages)
}

func (f *fakePageRepo) get(url string) *entity.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pages[url]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (f *fakePageRepo) seed(p *entity.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.pages[p.URL] = p
}

type fakeExtractionRepo struct {
	mu     sync.Mutex
	byPage map[int64]*entity.Extraction
	nextID int64
}

func newFakeExtractionRepo() *fakeExtractionRepo {
	return &fakeExtractionRepo{byPage: make(map[int64]*entity.Extraction)}
}

func (f *fakeExtractionRepo) Create(_ context.Context, ex *entity.Extraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byPage[ex.PageID]; ok {
		return repository.ErrDuplicateExtraction
	}
	f.nextID++
	ex.ID = f.nextID
	ex.CreatedAt = time.Now()
	cp := *ex
	f.byPage[ex.PageID] = &cp
	return nil
}

func (f *fakeExtractionRepo) FindByPageID(_ context.Context, pageID int64) (*entity.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.byPage[pageID]
	if !ok {
		return nil, repository.ErrExtractionNotFound
	}
	cp := *ex
	return &cp, nil
}

func (f *fakeExtractionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byPage)
}

type fakeRunRepo struct {
	mu            sync.Mutex
	runs          map[string]*entity.Run
	nextID        int
	finalizeCalls int
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[string]*entity.Run)}
}

func (f *fakeRunRepo) Create(_ context.Context, patchID string) (*entity.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	run := &entity.Run{
		ID:        fmt.Sprintf("run-%d", f.nextID),
		PatchID:   patchID,
		StartedAt: time.Now(),
		Status:    entity.RunStatusRunning,
	}
	f.runs[run.ID] = run
	cp := *run
	return &cp, nil
}

func (f *fakeRunRepo) FindByID(_ context.Context, runID string) (*entity.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (f *fakeRunRepo) Finalize(_ context.Context, runID string, status entity.RunStatus, metrics entity.RunMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return repository.ErrRunNotFound
	}
	if run.Status.Terminal() {
		return repository.ErrRunFinalized
	}
	run.Status = status
	run.Metrics = metrics
	now := time.Now()
	run.EndedAt = &now
	f.finalizeCalls++
	return nil
}

func (f *fakeRunRepo) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
	nextID  int64
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Append(_ context.Context, entry *entity.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *entry
	cp.ID = f.nextID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeAuditRepo) ListByRun(_ context.Context, runID string) ([]*entity.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.AuditEntry
	for _, e := range f.entries {
		if e.RunID == runID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) ListByPatch(_ context.Context, patchID string) ([]*entity.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.AuditEntry
	for _, e := range f.entries {
		if e.PatchID == patchID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeSeenHashRepo struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeSeenHashRepo() *fakeSeenHashRepo {
	return &fakeSeenHashRepo{seen: make(map[string]bool)}
}

func (f *fakeSeenHashRepo) MarkIfUnseen(_ context.Context, topic, hash string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := topic + ":" + hash
	if f.seen[key] {
		return true, nil
	}
	f.seen[key] = true
	return false, nil
}

// Provider stubs.

type stubDiscovery struct {
	candidates []repository.Candidate
	err        error
	panicMsg   string
}

func (s *stubDiscovery) Discover(_ context.Context, _ string, _ int, _ []string) ([]repository.Candidate, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.candidates, s.err
}

type stubCrawler struct {
	mu      sync.Mutex
	calls   []string
	errs    map[string]error
	content map[string]string // url -> extracted text
	delay   time.Duration
}

func (s *stubCrawler) Crawl(_ context.Context, url string) (*repository.CrawlResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	text := "content of " + url
	if s.content != nil {
		if custom, ok := s.content[url]; ok {
			text = custom
		}
	}
	return &repository.CrawlResult{
		URL:           url,
		FinalURL:      url,
		Title:         "Title " + url,
		ExtractedText: text,
		RawContent:    "<html>" + text + "</html>",
		HTTPStatus:    200,
		ByteSize:      int64(len(text)),
		Elapsed:       time.Millisecond,
	}, nil
}

func (s *stubCrawler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubExtractor struct {
	err error
}

func (s *stubExtractor) Extract(_ context.Context, input repository.ExtractInput) (*repository.ExtractResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &repository.ExtractResult{
		Title:      input.Title,
		TopFacts:   []string{"fact one", "fact two", "fact three"},
		Quotes:     []string{"a quote"},
		Summary:    "a summary of " + input.URL,
		Confidence: 0.9,
		Metadata:   map[string]any{"model": "stub"},
		Elapsed:    time.Millisecond,
	}, nil
}

type stubHero struct {
	err error
}

func (s *stubHero) SelectHero(_ context.Context, _ repository.HeroInput) (*repository.HeroResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &repository.HeroResult{MediaURL: "https://cdn.example.com/hero.jpg", Kind: "image"}, nil
}

type testPipeline struct {
	orch        *Orchestrator
	pages       *fakePageRepo
	extractions *fakeExtractionRepo
	runs        *fakeRunRepo
	audits      *fakeAuditRepo
	seen        *fakeSeenHashRepo
	discovery   *stubDiscovery
	crawler     *stubCrawler
	extractor   *stubExtractor
	hero        *stubHero
}

func newTestPipeline(candidates []repository.Candidate) *testPipeline {
	tp := &testPipeline{
		pages:       newFakePageRepo(),
		extractions: newFakeExtractionRepo(),
		runs:        newFakeRunRepo(),
		audits:      newFakeAuditRepo(),
		seen:        newFakeSeenHashRepo(),
		discovery:   &stubDiscovery{candidates: candidates},
		crawler:     &stubCrawler{errs: make(map[string]error)},
		extractor:   &stubExtractor{},
		hero:        &stubHero{},
	}
	tp.orch = NewOrchestrator(
		tp.pages, tp.extractions, tp.runs, tp.audits, tp.seen,
		tp.discovery, tp.crawler, tp.extractor, tp.hero,
		Options{
			Workers:         1,
			CrawlRatePerSec: 1000,
			ProviderTimeout: 5 * time.Second,
			DefaultDuration: time.Minute,
			DefaultMaxPages: 10,
		},
	)
	return tp
}

func candidateList(urls ...string) []repository.Candidate {
	out := make([]repository.Candidate, 0, len(urls))
	for _, u := range urls {
		out = append(out, repository.Candidate{URL: u, Provider: "stub"})
	}
	return out
}
