package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivghost/ragtool/internal/infra/llm"
	"github.com/ivghost/ragtool/pkg/uuid"
)

// Event topics published by Service.
const (
	TopicChunkCompleted = "analysis.chunk"
	TopicRunCompleted   = "analysis.completed"
)

// CancelledMessage is the text of a run stopped by a stop request.
const CancelledMessage = "analysis stopped at user request"

const questionPrompt = "Here is a document:\n%s\n\nQuestion: %s"

// Mode is the analysis branch a run took.
type Mode string

const (
	ModeQuestion Mode = "question"
	ModeFull     Mode = "full"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunOK        RunStatus = "ok"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Extractor reads the text of a document file. checkpoint is called before
// each page or record; a non-nil return aborts extraction with that error.
type Extractor interface {
	Extract(ctx context.Context, path string, checkpoint func() error) (string, error)
}

// Publisher receives run and chunk events.
type Publisher interface {
	Publish(topic string, payload any)
}

// Input is one analysis request. Either DocumentPath or Text is set.
type Input struct {
	DocumentPath string
	// DocumentName is the user-facing name; defaults to the path's base name.
	DocumentName string
	Text         string
	Question     string
	FullAnalysis bool
	Target       Target
}

// Result is the outcome of Analyze.
type Result struct {
	RunID     string        `json:"runId"`
	Document  string        `json:"document,omitempty"`
	Mode      Mode          `json:"mode"`
	Status    RunStatus     `json:"status"`
	Text      string        `json:"text"`
	Provider  llm.Provider  `json:"provider"`
	Model     string        `json:"model"`
	Chunks    int           `json:"chunks"`
	Degraded  int           `json:"degraded"`
	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ChunkEvent is published on TopicChunkCompleted.
type ChunkEvent struct {
	RunID  string `json:"runId"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Status string `json:"status"`
}

// Config sizes the full-analysis pipeline.
type Config struct {
	MaxConcurrency int
	ChunkMaxWords  int
	// ChunkTimeout bounds each chunk summary. Zero disables it.
	ChunkTimeout time.Duration
}

// DefaultConfig returns a pool of 4 workers and 600-word chunks.
func DefaultConfig() Config {
	return Config{MaxConcurrency: DefaultMaxConcurrency, ChunkMaxWords: 600}
}

// Service is the analysis façade: direct question answering or the full
// chunk, fan-out and synthesis pipeline.
type Service struct {
	gateway     llm.Gateway
	extractor   Extractor
	sw          *Switch
	bus         Publisher
	summarizer  *Summarizer
	synthesizer *Synthesizer
	cfg         Config
	logger      *slog.Logger
}

// NewService wires the façade. bus may be nil.
func NewService(gateway llm.Gateway, extractor Extractor, sw *Switch, bus Publisher, cfg Config, logger *slog.Logger) (*Service, error) {
	if cfg.MaxConcurrency < 1 || cfg.ChunkMaxWords < 1 {
		return nil, fmt.Errorf("%w: maxConcurrency and chunkMaxWords must be >= 1", ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		gateway:     gateway,
		extractor:   extractor,
		sw:          sw,
		bus:         bus,
		summarizer:  NewSummarizer(gateway, logger),
		synthesizer: NewSynthesizer(gateway, logger),
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Switch returns the stop switch shared by every run.
func (s *Service) Switch() *Switch { return s.sw }

// Analyze runs one analysis. Input problems (missing question, unreadable
// document) are returned as errors. Gateway failures and stop requests are
// reported through Result.Status.
//
// The stop signal is checked before extraction, during it, before dispatch
// and once more after the fan-out: a stop that lands while chunks are being
// summarized cancels the run and no synthesis prompt is sent, even though
// the chunks already running were allowed to finish.
func (s *Service) Analyze(ctx context.Context, in Input) (Result, error) {
	sig := s.sw.Current()
	res := Result{
		RunID:     uuid.NewString(),
		Document:  in.DocumentName,
		Mode:      ModeQuestion,
		Provider:  in.Target.Provider,
		Model:     in.Target.Model,
		StartedAt: time.Now(),
	}
	if in.FullAnalysis {
		res.Mode = ModeFull
	}
	if res.Document == "" && in.DocumentPath != "" {
		res.Document = filepath.Base(in.DocumentPath)
	}

	if !in.FullAnalysis && strings.TrimSpace(in.Question) == "" {
		return res, ErrMissingInput
	}
	if err := sig.Check(); err != nil {
		return s.finish(res, cancelled()), nil
	}

	text, err := s.documentText(ctx, in, sig)
	if errors.Is(err, ErrCancellationRequested) {
		return s.finish(res, cancelled()), nil
	}
	if err != nil {
		return res, err
	}

	log := s.logger.With("run", res.RunID, "mode", res.Mode, "provider", res.Provider, "model", res.Model)
	if !in.FullAnalysis {
		log.Info("sending question prompt", "chars", len(text))
		resp := s.gateway.Send(ctx, in.Target.Request(fmt.Sprintf(questionPrompt, text, in.Question)))
		return s.finish(res, outcomeOf(resp)), nil
	}

	chunks, err := Segment(text, s.cfg.ChunkMaxWords)
	if err != nil {
		return res, err
	}
	res.Chunks = len(chunks)
	log.Info("dispatching chunk summaries", "chunks", len(chunks), "workers", s.cfg.MaxConcurrency)

	results, err := RunFanOut(ctx, sig, chunks, s.cfg.MaxConcurrency, s.summarizer.For(in.Target),
		WithChunkTimeout(s.cfg.ChunkTimeout),
		WithLogger(log),
		WithProgress(func(r ChunkResult) {
			s.publish(TopicChunkCompleted, ChunkEvent{RunID: res.RunID, Index: r.Index, Total: len(chunks), Status: r.Status.String()})
		}),
	)
	if errors.Is(err, ErrCancellationRequested) {
		return s.finish(res, cancelled()), nil
	}
	if err != nil {
		return res, err
	}
	for _, r := range results {
		if r.Status == StatusDegraded {
			res.Degraded++
		}
	}
	if sig.Stopped() {
		return s.finish(res, cancelled()), nil
	}

	resp := s.synthesizer.Synthesize(ctx, results, in.Target)
	return s.finish(res, outcomeOf(resp)), nil
}

func (s *Service) documentText(ctx context.Context, in Input, sig *Signal) (string, error) {
	text := in.Text
	if in.DocumentPath != "" {
		if s.extractor == nil {
			return "", fmt.Errorf("analyze %s: no extractor configured", in.DocumentPath)
		}
		var err error
		text, err = s.extractor.Extract(ctx, in.DocumentPath, sig.Check)
		if err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

type outcome struct {
	status RunStatus
	text   string
}

func cancelled() outcome { return outcome{status: RunCancelled, text: CancelledMessage} }

// outcomeOf renders a gateway failure as a visible "[error]" message.
func outcomeOf(resp llm.Response) outcome {
	if !resp.OK() {
		return outcome{status: RunFailed, text: "[error] " + resp.Failure.Error()}
	}
	return outcome{status: RunOK, text: resp.Text}
}

func (s *Service) finish(res Result, o outcome) Result {
	res.Status = o.status
	res.Text = o.text
	res.Elapsed = time.Since(res.StartedAt)
	s.logger.Info("analysis finished",
		"run", res.RunID,
		"mode", res.Mode,
		"status", res.Status,
		"chunks", res.Chunks,
		"degraded", res.Degraded,
		"elapsed", res.Elapsed.Round(10*time.Millisecond),
	)
	s.publish(TopicRunCompleted, res)
	return res
}

func (s *Service) publish(topic string, payload any) {
	if s.bus != nil {
		s.bus.Publish(topic, payload)
	}
}
