package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ivghost/ragtool/internal/infra/llm"
)

// DegradedPlaceholder replaces the summary of a chunk whose model call failed.
const DegradedPlaceholder = "[error during summarization of this section]"

const summarizePrompt = "Here is an excerpt from a contract. Summarize the key points by identifying:\n" +
	"- The obligations of the parties\n" +
	"- Risk clauses\n" +
	"- Mutual commitments\n\n" +
	"Be concise, but rigorous and legally useful.\n\n" +
	"---\n%s\n---"

// Status tells whether a ChunkResult carries a real summary.
type Status int

const (
	StatusOK Status = iota
	StatusDegraded
)

func (s Status) String() string {
	if s == StatusDegraded {
		return "degraded"
	}
	return "ok"
}

// ChunkResult is the summary of one chunk, keyed by the chunk's index.
type ChunkResult struct {
	Index  int
	Text   string
	Status Status
}

// Target selects the backend for one analysis. It is passed explicitly to
// every call instead of being read from shared state.
type Target struct {
	Provider   llm.Provider
	Model      string
	Credential string
}

// Request builds a gateway request for prompt.
func (t Target) Request(prompt string) llm.Request {
	return llm.Request{
		Prompt:     prompt,
		Model:      t.Model,
		Provider:   t.Provider,
		Credential: t.Credential,
	}
}

// SummarizeFunc summarizes one chunk. It must always return a result for
// the chunk it was given.
type SummarizeFunc func(ctx context.Context, c Chunk) ChunkResult

// Summarizer applies the contract summary prompt to one chunk.
type Summarizer struct {
	gateway llm.Gateway
	logger  *slog.Logger
}

// NewSummarizer creates a Summarizer over gateway.
func NewSummarizer(gateway llm.Gateway, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Summarizer{gateway: gateway, logger: logger}
}

// Summarize never fails: a gateway failure yields a Degraded result holding
// DegradedPlaceholder.
func (s *Summarizer) Summarize(ctx context.Context, c Chunk, t Target) ChunkResult {
	resp := s.gateway.Send(ctx, t.Request(fmt.Sprintf(summarizePrompt, c.Content)))
	if !resp.OK() {
		s.logger.Error("chunk summary failed",
			"chunk", c.Index,
			"kind", resp.Failure.Kind,
			"error", resp.Failure.Error(),
		)
		return Degraded(c.Index)
	}
	return ChunkResult{Index: c.Index, Text: resp.Text, Status: StatusOK}
}

// For binds t so the Summarizer can be handed to RunFanOut.
func (s *Summarizer) For(t Target) SummarizeFunc {
	return func(ctx context.Context, c Chunk) ChunkResult {
		return s.Summarize(ctx, c, t)
	}
}

// Degraded returns the placeholder result for chunk index.
func Degraded(index int) ChunkResult {
	return ChunkResult{Index: index, Text: DegradedPlaceholder, Status: StatusDegraded}
}
