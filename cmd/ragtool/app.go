package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/domain/document"
	"github.com/ivghost/ragtool/internal/domain/history"
	"github.com/ivghost/ragtool/internal/domain/nutrition"
	"github.com/ivghost/ragtool/internal/infra/config"
	"github.com/ivghost/ragtool/internal/infra/eventbus"
	"github.com/ivghost/ragtool/internal/infra/llm"
	"github.com/ivghost/ragtool/internal/infra/sqlite"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	defaults analysis.Target

	engine   *llm.LocalEngine
	sw       *analysis.Switch
	bus      *eventbus.Bus
	analyzer *analysis.Service
	planner  *nutrition.Planner

	// set by openHistory
	db       *sql.DB
	runs     *history.Store
	recorder *history.Recorder

	closeLog func() error
}

// loadApp reads the configuration, opens the logger on console and wires
// the analysis services.
func loadApp(console io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := cfg.NewLogger(console)
	if err != nil {
		return nil, err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		closeLog() //nolint:errcheck
		return nil, err
	}
	a.closeLog = closeLog
	return a, nil
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	provider, ok := llm.ParseProvider(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}

	engine := llm.NewLocalEngine(cfg.OllamaBaseURL)
	gateway := llm.NewHTTPGateway(llm.DefaultTable(llm.Endpoints{
		OllamaBaseURL:     cfg.OllamaBaseURL,
		OpenAIBaseURL:     cfg.OpenAIBaseURL,
		AnthropicBaseURL:  cfg.AnthropicBaseURL,
		PerplexityBaseURL: cfg.PerplexityBaseURL,
		VendorTimeout:     cfg.VendorTimeout,
	}), logger)

	// Stopping also frees accelerator memory held by local models.
	sw := analysis.NewSwitch(cfg.StopJoinPerTask, logger, engine.UnloadAll)
	bus := eventbus.NewWithLogger(logger)

	analyzer, err := analysis.NewService(gateway, document.NewExtractor(logger), sw, bus, analysis.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		ChunkMaxWords:  cfg.ChunkMaxWords,
		ChunkTimeout:   cfg.ChunkTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		defaults: analysis.Target{Provider: provider, Model: cfg.Model, Credential: cfg.Credential},
		engine:   engine,
		sw:       sw,
		bus:      bus,
		analyzer: analyzer,
		planner:  nutrition.NewPlanner(gateway, sw, bus, logger),
	}, nil
}

// openHistory opens the run-history database and subscribes its recorder
// to the bus. The caller starts the recorder.
func (a *app) openHistory(ctx context.Context) error {
	if a.cfg.DBPath != sqlite.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sqlite.NewDB(a.cfg.DBPath)
	if err != nil {
		return err
	}
	if err := sqlite.MigrateUp(ctx, db); err != nil {
		db.Close() //nolint:errcheck
		return fmt.Errorf("migrate: %w", err)
	}
	a.db = db
	a.runs = history.NewStore(db)
	a.recorder = history.NewRecorder(a.runs, a.bus, a.logger)
	return nil
}

func (a *app) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
	}
	if a.closeLog != nil {
		if cerr := a.closeLog(); err == nil {
			err = cerr
		}
	}
	return err
}
