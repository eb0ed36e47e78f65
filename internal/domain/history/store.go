// Package history keeps an append-only record of analysis and nutrition runs
// in SQLite so the control surface can list past results.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/domain/nutrition"
)

// Run kinds.
const (
	KindAnalysis  = "analysis"
	KindNutrition = "nutrition"
)

// ModePlan is the mode recorded for nutrition runs.
const ModePlan = "plan"

// Paging bounds for List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one recorded run.
type Run struct {
	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	Document   string        `json:"document,omitempty"`
	Mode       string        `json:"mode"`
	Status     string        `json:"status"`
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	Chunks     int           `json:"chunks"`
	Degraded   int           `json:"degraded"`
	Elapsed    time.Duration `json:"elapsed"`
	Output     string        `json:"output"`
	StartedAt  time.Time     `json:"startedAt"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// ChunkOutcome is the recorded status of one chunk of a full analysis.
type ChunkOutcome struct {
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Status string `json:"status"`
}

// FromAnalysis converts an analysis result into a Run.
func FromAnalysis(r analysis.Result) Run {
	return Run{
		ID:        r.RunID,
		Kind:      KindAnalysis,
		Document:  r.Document,
		Mode:      string(r.Mode),
		Status:    string(r.Status),
		Provider:  string(r.Provider),
		Model:     r.Model,
		Chunks:    r.Chunks,
		Degraded:  r.Degraded,
		Elapsed:   r.Elapsed,
		Output:    r.Text,
		StartedAt: r.StartedAt,
	}
}

// FromPlan converts a nutrition plan into a Run.
func FromPlan(p nutrition.Plan) Run {
	return Run{
		ID:        p.RunID,
		Kind:      KindNutrition,
		Mode:      ModePlan,
		Status:    string(p.Status),
		Provider:  string(p.Provider),
		Model:     p.Model,
		Elapsed:   p.Elapsed,
		Output:    p.Text,
		StartedAt: p.StartedAt,
	}
}

// Store reads and writes runs. Runs are never updated once recorded.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store over a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record inserts run. Recording the same id twice is a no-op.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("record run: empty id")
	}
	kind := run.Kind
	if kind == "" {
		kind = KindAnalysis
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_run
			(id, kind, document, mode, status, provider, model, chunks, degraded, elapsed_ms, output, started_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		run.ID, kind, run.Document, run.Mode, run.Status, run.Provider, run.Model,
		run.Chunks, run.Degraded, run.Elapsed.Milliseconds(), run.Output,
		formatTime(run.StartedAt), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// RecordChunk stores the outcome of one chunk. A repeated (run, index) pair
// overwrites the earlier status.
func (s *Store) RecordChunk(ctx context.Context, runID string, c ChunkOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunk_outcome (run_id, chunk_index, total, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, chunk_index) DO UPDATE SET total = excluded.total, status = excluded.status`,
		runID, c.Index, c.Total, c.Status,
	)
	if err != nil {
		return fmt.Errorf("record chunk %s/%d: %w", runID, c.Index, err)
	}
	return nil
}

const runColumns = `id, kind, document, mode, status, provider, model, chunks, degraded, elapsed_ms, output, started_at, recorded_at`

// Get returns the run with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM analysis_run WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns runs newest first together with the total number of runs.
// limit is clamped to [1, MaxListLimit]; zero means DefaultListLimit.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Run, int, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM analysis_run ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_run`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}
	return runs, total, nil
}

// Chunks returns the recorded chunk outcomes of runID in index order.
func (s *Store) Chunks(ctx context.Context, runID string) ([]ChunkOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_index, total, status FROM chunk_outcome WHERE run_id = ? ORDER BY chunk_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list chunks %s: %w", runID, err)
	}
	defer rows.Close()

	out := []ChunkOutcome{}
	for rows.Next() {
		var c ChunkOutcome
		if err := rows.Scan(&c.Index, &c.Total, &c.Status); err != nil {
			return nil, fmt.Errorf("list chunks %s: %w", runID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                   Run
		elapsedMS             int64
		startedAt, recordedAt string
	)
	err := sc.Scan(&run.ID, &run.Kind, &run.Document, &run.Mode, &run.Status, &run.Provider, &run.Model,
		&run.Chunks, &run.Degraded, &elapsedMS, &run.Output, &startedAt, &recordedAt)
	if err != nil {
		return Run{}, err
	}
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	run.StartedAt = parseTime(startedAt)
	run.RecordedAt = parseTime(recordedAt)
	return run, nil
}

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
