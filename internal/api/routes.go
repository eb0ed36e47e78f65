// Package api assembles the chi router of the control surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ivghost/ragtool/internal/api/handlers"
	apmiddleware "github.com/ivghost/ragtool/internal/api/middleware"
	"github.com/ivghost/ragtool/internal/domain/analysis"
)

// Deps are the services behind the routes.
type Deps struct {
	Analyzer handlers.Analyzer
	Planner  handlers.Planner
	Switch   handlers.StopSwitch
	Engine   handlers.LocalEngine
	Runs     handlers.RunStore

	// Defaults fill provider, model and credential when a request omits them.
	Defaults     analysis.Target
	FullAnalysis bool
	Uploads      handlers.Uploads

	// AuthSecret enables Bearer JWT on /api/v1 when non-empty.
	AuthSecret []byte
	Logger     *slog.Logger
}

// NewRouter creates and configures a new chi router with all routes.
// /health is public; /api/v1/* is guarded when an auth secret is set.
func NewRouter(d Deps) *chi.Mux {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// ===== PUBLIC ROUTES =====

	// Health check, used by load balancers and health probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// ===== CONTROL SURFACE =====

	statusHandler := handlers.NewStatusHandler(d.Engine)
	analyzeHandler := handlers.NewAnalyzeHandler(d.Analyzer, d.Defaults, d.FullAnalysis, d.Uploads, logger)
	nutritionHandler := handlers.NewNutritionHandler(d.Planner, d.Defaults, d.Uploads, logger)
	stopHandler := handlers.NewStopHandler(d.Switch)
	runsHandler := handlers.NewRunsHandler(d.Runs, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if len(d.AuthSecret) > 0 {
			r.Use(apmiddleware.AuthMiddleware(d.AuthSecret))
		}
		r.Use(apmiddleware.AuditMiddleware(logger))

		r.Get("/status", statusHandler.Status)           // GET /api/v1/status
		r.Get("/models", statusHandler.Models)           // GET /api/v1/models
		r.Post("/analyze", analyzeHandler.Analyze)       // POST /api/v1/analyze
		r.Post("/nutrition/plan", nutritionHandler.Plan) // POST /api/v1/nutrition/plan

		r.Route("/stop", func(r chi.Router) {
			r.Get("/", stopHandler.State)       // GET /api/v1/stop
			r.Post("/", stopHandler.Stop)       // POST /api/v1/stop
			r.Post("/rearm", stopHandler.Rearm) // POST /api/v1/stop/rearm
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runsHandler.List)    // GET /api/v1/runs
			r.Get("/{id}", runsHandler.Get) // GET /api/v1/runs/{id}
		})
	})

	return r
}
