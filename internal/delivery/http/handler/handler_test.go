package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/discovery-service/internal/entity"
	"github.com/user/discovery-service/internal/repository"
	"github.com/user/discovery-service/internal/usecase"
)

type stubStarter struct {
	runID  string
	err    error
	params usecase.StartRunParams
}

func (s *stubStarter) StartRun(_ context.Context, p usecase.StartRunParams) (string, error) {
	s.params = p
	return s.runID, s.err
}

type stubQuery struct {
	run     *entity.Run
	runErr  error
	entries []*entity.AuditEntry
	listErr error
}

func (s *stubQuery) GetRunSummary(context.Context, string) (*entity.Run, error) {
	return s.run, s.runErr
}

func (s *stubQuery) ListRunAudits(context.Context, string) ([]*entity.AuditEntry, error) {
	return s.entries, s.listErr
}

func (s *stubQuery) ListPatchAudits(context.Context, string) ([]*entity.AuditEntry, error) {
	return s.entries, s.listErr
}

func TestHandleStartRun_Accepted(t *testing.T) {
	starter := &stubStarter{runID: "run-42"}
	h := NewHandler(starter, &stubQuery{})

	body := `{"topic":"solar eclipse","patch_id":"patch-1","duration_minutes":5,"max_pages":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/discovery/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleStartRun(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "run-42", resp["run_id"])

	assert.Equal(t, "solar eclipse", starter.params.Topic)
	assert.Equal(t, "patch-1", starter.params.PatchID)
	assert.Equal(t, 5*time.Minute, starter.params.Duration)
	assert.Equal(t, 10, starter.params.MaxPages)
}

func TestHandleStartRun_MissingTopic(t *testing.T) {
	starter := &stubStarter{runID: "run-42"}
	h := NewHandler(starter, &stubQuery{})

	for _, body := range []string{`{}`, `{"topic":"   "}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/discovery/runs", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleStartRun(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
	assert.Empty(t, starter.params.Topic, "starter must not be invoked for blank topics")
}

func TestHandleStartRun_MalformedJSON(t *testing.T) {
	h := NewHandler(&stubStarter{}, &stubQuery{})

	req := httptest.NewRequest(http.MethodPost, "/api/discovery/runs", strings.NewReader(`{"topic":`))
	rec := httptest.NewRecorder()

	h.HandleStartRun(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStartRun_InvalidTopicFromUsecase(t *testing.T) {
	h := NewHandler(&stubStarter{err: usecase.ErrInvalidTopic}, &stubQuery{})

	req := httptest.NewRequest(http.MethodPost, "/api/discovery/runs", strings.NewReader(`{"topic":"x"}`))
	rec := httptest.NewRecorder()

	h.HandleStartRun(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetRunSummary_OK(t *testing.T) {
	ended := time.Now()
	h := NewHandler(&stubStarter{}, &stubQuery{run: &entity.Run{
		ID:        "run-1",
		PatchID:   "patch-1",
		Status:    entity.RunStatusCompleted,
		StartedAt: ended.Add(-time.Minute),
		EndedAt:   &ended,
		Metrics:   entity.RunMetrics{PagesCrawled: 3, Extractions: 2},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/discovery/runs/run-1", nil)
	req.SetPathValue("id", "run-1")
	rec := httptest.NewRecorder()

	h.HandleGetRunSummary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp["run_id"])
	assert.Equal(t, "completed", resp["status"])
	metrics, ok := resp["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), metrics["pages_crawled"])
}

func TestHandleGetRunSummary_NotFound(t *testing.T) {
	h := NewHandler(&stubStarter{}, &stubQuery{runErr: repository.ErrRunNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/discovery/runs/ghost", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()

	h.HandleGetRunSummary(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListRunAudits_PreservesOrder(t *testing.T) {
	base := time.Now()
	h := NewHandler(&stubStarter{}, &stubQuery{entries: []*entity.AuditEntry{
		{ID: 1, RunID: "run-1", Step: entity.StepDiscover, Status: entity.AuditOK, CreatedAt: base},
		{ID: 2, RunID: "run-1", Step: entity.StepCrawl, Status: entity.AuditOK, CreatedAt: base.Add(time.Second)},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/discovery/runs/run-1/audits", nil)
	req.SetPathValue("id", "run-1")
	rec := httptest.NewRecorder()

	h.HandleListRunAudits(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, entity.StepDiscover, resp[0]["step"])
	assert.Equal(t, entity.StepCrawl, resp[1]["step"])
}

func TestHandleListPatchAudits_EmptyIsArray(t *testing.T) {
	h := NewHandler(&stubStarter{}, &stubQuery{})

	req := httptest.NewRequest(http.MethodGet, "/api/discovery/patches/patch-9/audits", nil)
	req.SetPathValue("id", "patch-9")
	rec := httptest.NewRecorder()

	h.HandleListPatchAudits(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHandleHealthCheck(t *testing.T) {
	h := NewHandler(&stubStarter{}, &stubQuery{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	h.HandleHealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
