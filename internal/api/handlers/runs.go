package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivghost/ragtool/internal/domain/history"
)

// RunStore reads the run history.
type RunStore interface {
	List(ctx context.Context, limit, offset int) ([]history.Run, int, error)
	Get(ctx context.Context, id string) (history.Run, error)
	Chunks(ctx context.Context, runID string) ([]history.ChunkOutcome, error)
}

// RunsHandler serves the run history.
type RunsHandler struct {
	store  RunStore
	logger *slog.Logger
}

// NewRunsHandler creates a RunsHandler.
func NewRunsHandler(store RunStore, logger *slog.Logger) *RunsHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RunsHandler{store: store, logger: logger}
}

type listRunsResponse struct {
	Data []history.Run `json:"data"`
	Meta Meta          `json:"meta"`
}

type runDetailResponse struct {
	history.Run
	ChunkOutcomes []history.ChunkOutcome `json:"chunkOutcomes"`
}

// List handles GET /api/v1/runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)
	runs, total, err := h.store.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, listRunsResponse{
		Data: runs,
		Meta: Meta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

// Get handles GET /api/v1/runs/{id}.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("get run failed", "run", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	chunks, err := h.store.Chunks(r.Context(), id)
	if err != nil {
		h.logger.Error("get run chunks failed", "run", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, runDetailResponse{Run: run, ChunkOutcomes: chunks})
}
