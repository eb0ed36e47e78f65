// Package handlers implements the HTTP handlers of the control surface.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/domain/document"
	"github.com/ivghost/ragtool/internal/domain/nutrition"
	"github.com/ivghost/ragtool/internal/infra/llm"
)

const (
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"

	errInvalidBody        = "invalid request body"
	errFailedToEncodeJSON = "failed to encode response"
)

// DefaultMaxUploadBytes bounds a multipart request body.
const DefaultMaxUploadBytes = 32 << 20

// paginationParams holds parsed limit and offset values.
type paginationParams struct {
	Limit  int
	Offset int
}

const (
	defaultPaginationLimit = 20
	maxPaginationLimit     = 100
)

// Meta is the paging block of list responses.
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Uploads configures where multipart files are spooled.
type Uploads struct {
	// Dir is the spool directory; empty means the OS temp dir.
	Dir      string
	MaxBytes int64
}

func (u Uploads) maxBytes() int64 {
	if u.MaxBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return u.MaxBytes
}

// parsePaginationParams extracts and validates limit/offset from URL query params.
func parsePaginationParams(r *http.Request) paginationParams {
	limit := defaultPaginationLimit
	offset := 0

	if lim, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && lim > 0 {
		if lim > maxPaginationLimit {
			lim = maxPaginationLimit
		}
		limit = lim
	}

	if off, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && off >= 0 {
		offset = off
	}

	return paginationParams{Limit: limit, Offset: offset}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set(headerContentType, mimeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, errFailedToEncodeJSON, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusForError maps domain input errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, analysis.ErrMissingInput),
		errors.Is(err, analysis.ErrInvalidArgument),
		errors.Is(err, nutrition.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, analysis.ErrEmptyDocument),
		errors.Is(err, document.ErrImageOnlyPDF):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// statusForRun maps a run outcome to an HTTP status code.
func statusForRun(s analysis.RunStatus) int {
	switch s {
	case analysis.RunCancelled:
		return http.StatusConflict
	case analysis.RunFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// spoolUpload copies the multipart file field to a temp file that keeps the
// upload's extension, since extraction dispatches on it. ok is false when
// the field is absent.
func spoolUpload(r *http.Request, field, dir string) (path, name string, cleanup func(), ok bool, err error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", "", func() {}, false, nil
	}
	if err != nil {
		return "", "", nil, false, fmt.Errorf("read upload %s: %w", field, err)
	}
	defer file.Close()

	name = filepath.Base(header.Filename)
	tmp, err := os.CreateTemp(dir, "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return "", "", nil, false, fmt.Errorf("spool upload: %w", err)
	}
	cleanup = func() { os.Remove(tmp.Name()) } //nolint:errcheck
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return "", "", nil, false, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", "", nil, false, fmt.Errorf("spool upload: %w", err)
	}
	return tmp.Name(), name, cleanup, true, nil
}

// targetFromForm reads provider, model and credential, falling back to defaults.
func targetFromForm(r *http.Request, defaults analysis.Target) (analysis.Target, error) {
	t := defaults
	if v := strings.TrimSpace(r.FormValue("provider")); v != "" {
		p, ok := llm.ParseProvider(v)
		if !ok {
			return t, fmt.Errorf("%w: unknown provider %q", analysis.ErrInvalidArgument, v)
		}
		t.Provider = p
	}
	if v := strings.TrimSpace(r.FormValue("model")); v != "" {
		t.Model = v
	}
	if v := strings.TrimSpace(r.FormValue("credential")); v != "" {
		t.Credential = v
	}
	return t, nil
}

// formBool accepts the values strconv.ParseBool does plus "on" from HTML checkboxes.
func formBool(r *http.Request, key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(r.FormValue(key))
	switch strings.ToLower(v) {
	case "":
		return fallback, nil
	case "on":
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", analysis.ErrInvalidArgument, key)
	}
	return b, nil
}

// formFloat returns nil for a blank field. A decimal comma is accepted.
func formFloat(r *http.Request, key string) (*float64, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", nutrition.ErrInvalidInput, key)
	}
	return &f, nil
}
