package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ivghost/ragtool/internal/api/ctxkeys"
)

// Outcome classifies a response for the audit trail.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// AuditMiddleware writes one structured audit record per /api/v1 request:
// the operator action, the token subject when auth is on, the status and
// the duration. A nil logger passes requests through untouched.
func AuditMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			subject, _ := ctxkeys.String(r.Context(), ctxkeys.Subject)
			outcome := outcomeFromStatus(recorder.statusCode)
			level := slog.LevelInfo
			if outcome != OutcomeSuccess {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "api audit",
				slog.String("action", actionFromRequest(r.Method, r.URL.Path)),
				slog.String("subject", subject),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", recorder.statusCode),
				slog.String("outcome", string(outcome)),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func outcomeFromStatus(statusCode int) Outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return OutcomeSuccess
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return OutcomeDenied
	default:
		return OutcomeError
	}
}

// actionFromRequest names the operator action behind an /api/v1 route.
func actionFromRequest(method, path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[0] != "api" || segments[1] != "v1" {
		return strings.ToLower(method) + "_request"
	}

	rest := strings.Join(segments[2:], "/")
	switch {
	case method == http.MethodPost && rest == "analyze":
		return "analyze_document"
	case method == http.MethodPost && rest == "nutrition/plan":
		return "plan_nutrition"
	case method == http.MethodPost && rest == "stop":
		return "request_stop"
	case method == http.MethodPost && rest == "stop/rearm":
		return "rearm_stop"
	case method == http.MethodGet && rest == "runs":
		return "list_runs"
	case method == http.MethodGet && segments[2] == "runs" && len(segments) == 4:
		return "get_run"
	case method == http.MethodGet && rest == "models":
		return "list_models"
	case method == http.MethodGet && rest == "status":
		return "check_status"
	}
	return strings.ToLower(method) + "_request"
}
