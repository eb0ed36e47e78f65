package handlers

import (
	"context"
	"net/http"
	"time"
)

// NoModelPlaceholder is listed when the local engine reports no models.
const NoModelPlaceholder = "no model available"

const engineProbeTimeout = 2 * time.Second

// LocalEngine is the part of the local inference engine the status routes need.
type LocalEngine interface {
	Health(ctx context.Context) error
	ListModels(ctx context.Context) ([]string, error)
}

// StatusHandler reports local engine connectivity and installed models.
type StatusHandler struct {
	engine LocalEngine
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(engine LocalEngine) *StatusHandler {
	return &StatusHandler{engine: engine}
}

type statusResponse struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

type modelsResponse struct {
	Models []string `json:"models"`
	Error  string   `json:"error,omitempty"`
}

// Status handles GET /api/v1/status. An unreachable engine is a normal
// answer, not an HTTP error.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), engineProbeTimeout)
	defer cancel()

	if err := h.engine.Health(ctx); err != nil {
		writeJSON(w, http.StatusOK, statusResponse{Connected: false, Message: "Ollama unavailable (" + err.Error() + ")"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Connected: true, Message: "Connected to Ollama"})
}

// Models handles GET /api/v1/models.
func (h *StatusHandler) Models(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), engineProbeTimeout)
	defer cancel()

	models, err := h.engine.ListModels(ctx)
	if err != nil {
		writeJSON(w, http.StatusOK, modelsResponse{Models: []string{NoModelPlaceholder}, Error: err.Error()})
		return
	}
	if len(models) == 0 {
		models = []string{NoModelPlaceholder}
	}
	writeJSON(w, http.StatusOK, modelsResponse{Models: models})
}
