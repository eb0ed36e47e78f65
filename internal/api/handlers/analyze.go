package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ivghost/ragtool/internal/domain/analysis"
)

// Analyzer runs one document analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (analysis.Result, error)
}

// AnalyzeHandler handles document analysis uploads.
type AnalyzeHandler struct {
	svc         Analyzer
	defaults    analysis.Target
	defaultFull bool
	uploads     Uploads
	logger      *slog.Logger
}

// NewAnalyzeHandler creates an AnalyzeHandler. defaults fill the form fields
// a request leaves blank.
func NewAnalyzeHandler(svc Analyzer, defaults analysis.Target, defaultFull bool, uploads Uploads, logger *slog.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AnalyzeHandler{svc: svc, defaults: defaults, defaultFull: defaultFull, uploads: uploads, logger: logger}
}

// Analyze handles POST /api/v1/analyze.
//
// Multipart fields: file (or text), question, fullAnalysis, provider, model,
// credential. The body is the analysis Result; the status code is 200 for
// ok, 409 for cancelled and 502 for a failed model call.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.maxBytes())
	if err := r.ParseMultipartForm(h.uploads.maxBytes()); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	target, err := targetFromForm(r, h.defaults)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	full, err := formBool(r, "fullAnalysis", h.defaultFull)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	path, name, cleanup, ok, err := spoolUpload(r, "file", h.uploads.Dir)
	if err != nil {
		h.logger.Error("upload spool failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer cleanup()

	in := analysis.Input{
		DocumentPath: path,
		DocumentName: name,
		Question:     r.FormValue("question"),
		FullAnalysis: full,
		Target:       target,
	}
	if !ok {
		in.Text = r.FormValue("text")
		if strings.TrimSpace(in.Text) == "" {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
	}

	res, err := h.svc.Analyze(r.Context(), in)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("analysis failed", "document", name, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, statusForRun(res.Status), res)
}
