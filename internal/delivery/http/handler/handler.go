package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/user/discovery-service/internal/delivery/http/request"
	"github.com/user/discovery-service/internal/delivery/http/response"
	"github.com/user/discovery-service/internal/repository"
	"github.com/user/discovery-service/internal/usecase"
)

// Handler serves the discovery pipeline API.
type Handler struct {
	starter usecase.RunStarter
	query   usecase.RunQuery
}

// NewHandler creates the API handler.
func NewHandler(starter usecase.RunStarter, query usecase.RunQuery) *Handler {
	return &Handler{starter: starter, query: query}
}

// HandleStartRun accepts a discovery run request and acknowledges with 202
// while the pipeline executes in the background.
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req request.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		h.writeJSONError(w, "topic is required", http.StatusBadRequest)
		return
	}

	runID, err := h.starter.StartRun(r.Context(), usecase.StartRunParams{
		Topic:          req.Topic,
		PatchID:        req.PatchID,
		Duration:       time.Duration(req.DurationMinutes) * time.Minute,
		MaxPages:       req.MaxPages,
		AllowedDomains: req.HighSignalDomains,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidTopic) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to start discovery run", "topic", req.Topic, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.StartRunResponse{
		Status: "accepted",
		RunID:  runID,
	})
}

// HandleGetRunSummary returns the current status and metrics of a run.
func (h *Handler) HandleGetRunSummary(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	run, err := h.query.GetRunSummary(r.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			h.writeJSONError(w, "Run not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get run summary", "run_id", runID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromRun(run))
}

// HandleListRunAudits returns a run's audit trail ordered by time.
func (h *Handler) HandleListRunAudits(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	entries, err := h.query.ListRunAudits(r.Context(), runID)
	if err != nil {
		slog.Error("Failed to list run audits", "run_id", runID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromAudits(entries))
}

// HandleListPatchAudits returns audit entries across all runs of a patch.
func (h *Handler) HandleListPatchAudits(w http.ResponseWriter, r *http.Request) {
	patchID := r.PathValue("id")
	entries, err := h.query.ListPatchAudits(r.Context(), patchID)
	if err != nil {
		slog.Error("Failed to list patch audits", "patch_id", patchID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromAudits(entries))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
