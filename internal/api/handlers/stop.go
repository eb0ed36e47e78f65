package handlers

import (
	"context"
	"net/http"

	"github.com/ivghost/ragtool/internal/domain/analysis"
)

// StopSwitch is the stop control shared with the analysis service.
type StopSwitch interface {
	RequestStop(ctx context.Context) analysis.StopReport
	Rearm() *analysis.Signal
	Current() *analysis.Signal
}

// StopHandler exposes the cooperative stop signal.
type StopHandler struct {
	sw StopSwitch
}

// NewStopHandler creates a StopHandler.
func NewStopHandler(sw StopSwitch) *StopHandler {
	return &StopHandler{sw: sw}
}

type stopResponse struct {
	Stopped bool                 `json:"stopped"`
	Active  int                  `json:"active"`
	Report  *analysis.StopReport `json:"report,omitempty"`
}

// Stop handles POST /api/v1/stop. It returns after the bounded join, with
// the join outcome in the report. Repeated calls are harmless.
func (h *StopHandler) Stop(w http.ResponseWriter, r *http.Request) {
	report := h.sw.RequestStop(r.Context())
	sig := h.sw.Current()
	writeJSON(w, http.StatusOK, stopResponse{Stopped: sig.Stopped(), Active: sig.Active(), Report: &report})
}

// Rearm handles POST /api/v1/stop/rearm: new operations observe a fresh
// signal. Work still observing the stopped signal is unaffected.
func (h *StopHandler) Rearm(w http.ResponseWriter, _ *http.Request) {
	sig := h.sw.Rearm()
	writeJSON(w, http.StatusOK, stopResponse{Stopped: sig.Stopped(), Active: sig.Active()})
}

// State handles GET /api/v1/stop.
func (h *StopHandler) State(w http.ResponseWriter, _ *http.Request) {
	sig := h.sw.Current()
	writeJSON(w, http.StatusOK, stopResponse{Stopped: sig.Stopped(), Active: sig.Active()})
}
