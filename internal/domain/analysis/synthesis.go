package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ivghost/ragtool/internal/infra/llm"
)

const synthesisPrompt = "From the contract summaries below, write a clear synthesis:\n" +
	"- List the main obligations of each party\n" +
	"- Identify risky or ambiguous clauses\n" +
	"- Restate the mutual commitments\n\n"

// Synthesizer turns the ordered chunk summaries into one final answer.
type Synthesizer struct {
	gateway llm.Gateway
	logger  *slog.Logger
}

// NewSynthesizer creates a Synthesizer over gateway.
func NewSynthesizer(gateway llm.Gateway, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Synthesizer{gateway: gateway, logger: logger}
}

// Synthesize joins results in index order and issues one gateway call.
// Degraded placeholders are included verbatim.
func (s *Synthesizer) Synthesize(ctx context.Context, results []ChunkResult, t Target) llm.Response {
	combined := JoinSummaries(results)
	s.logger.Info("sending synthesis prompt", "chunks", len(results), "chars", len(combined))
	return s.gateway.Send(ctx, t.Request(synthesisPrompt+combined))
}

// JoinSummaries concatenates result texts with a blank line between them.
// results must already be in index order.
func JoinSummaries(results []ChunkResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\n\n")
}
