package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/infra/llm"
)

// Analyzer runs one document analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (analysis.Result, error)
}

// StopSwitch stops and rearms the shared cancellation signal.
type StopSwitch interface {
	RequestStop(ctx context.Context) analysis.StopReport
	Rearm() *analysis.Signal
}

// ModelLister lists local models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Service holds the dependencies used by the MCP tool handlers.
type Service struct {
	defaults analysis.Target
	svc      Analyzer
	sw       StopSwitch
	engine   ModelLister
	logger   *slog.Logger
}

// NewService creates a Service. defaults fill provider, model and credential
// when a call omits them.
func NewService(svc Analyzer, sw StopSwitch, engine ModelLister, defaults analysis.Target, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{defaults: defaults, svc: svc, sw: sw, engine: engine, logger: logger}
}

// AnalyzeInput is the argument of analyze_document.
type AnalyzeInput struct {
	Path         string `json:"path" jsonschema:"absolute path of the document to analyze"`
	Question     string `json:"question,omitempty" jsonschema:"question to answer; required unless fullAnalysis is set"`
	FullAnalysis bool   `json:"fullAnalysis,omitempty" jsonschema:"summarize the whole document chunk by chunk"`
	Provider     string `json:"provider,omitempty" jsonschema:"ollama, openai, anthropic or perplexity"`
	Model        string `json:"model,omitempty" jsonschema:"model name for the provider"`
}

// AnalyzeOutput is the structured result of analyze_document.
type AnalyzeOutput struct {
	RunID     string `json:"runId"`
	Document  string `json:"document"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
	Text      string `json:"text"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Chunks    int    `json:"chunks"`
	Degraded  int    `json:"degraded"`
	ElapsedMS int64  `json:"elapsedMs"`
}

// AnalyzeDocument runs one analysis. Cancelled and failed runs are reported
// in the output status, not as tool errors.
func (s *Service) AnalyzeDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, AnalyzeOutput{}, fmt.Errorf("path is required")
	}

	target := s.defaults
	if input.Provider != "" {
		p, ok := llm.ParseProvider(input.Provider)
		if !ok {
			return nil, AnalyzeOutput{}, fmt.Errorf("unsupported provider %q", input.Provider)
		}
		if p != target.Provider {
			target.Credential = ""
		}
		target.Provider = p
	}
	if input.Model != "" {
		target.Model = input.Model
	}

	res, err := s.svc.Analyze(ctx, analysis.Input{
		DocumentPath: input.Path,
		Question:     input.Question,
		FullAnalysis: input.FullAnalysis,
		Target:       target,
	})
	if err != nil {
		return nil, AnalyzeOutput{}, fmt.Errorf("analyze %s: %w", input.Path, err)
	}
	s.logger.Info("mcp analysis finished", "run", res.RunID, "status", res.Status)

	return nil, AnalyzeOutput{
		RunID:     res.RunID,
		Document:  res.Document,
		Mode:      string(res.Mode),
		Status:    string(res.Status),
		Text:      res.Text,
		Provider:  string(res.Provider),
		Model:     res.Model,
		Chunks:    res.Chunks,
		Degraded:  res.Degraded,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}, nil
}

// StopInput is the argument of stop_operations.
type StopInput struct {
	Rearm bool `json:"rearm,omitempty" jsonschema:"install a fresh signal after stopping"`
}

// StopOutput reports what the stop request found.
type StopOutput struct {
	AlreadyStopped bool  `json:"alreadyStopped"`
	Pending        int   `json:"pending"`
	Joined         bool  `json:"joined"`
	HookErrors     int   `json:"hookErrors"`
	WaitedMS       int64 `json:"waitedMs"`
	Rearmed        bool  `json:"rearmed"`
}

// StopOperations stops all running work.
func (s *Service) StopOperations(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StopInput,
) (*mcp.CallToolResult, StopOutput, error) {
	report := s.sw.RequestStop(ctx)
	out := StopOutput{
		AlreadyStopped: report.AlreadyStopped,
		Pending:        report.Pending,
		Joined:         report.Joined,
		HookErrors:     report.HookErrors,
		WaitedMS:       report.Waited.Milliseconds(),
	}
	if input.Rearm {
		out.Rearmed = !s.sw.Rearm().Stopped()
	}
	return nil, out, nil
}

// ListModelsInput takes no arguments.
type ListModelsInput struct{}

// ListModelsOutput lists installed local models.
type ListModelsOutput struct {
	Models []string `json:"models"`
}

// ListModels lists the local engine's models.
func (s *Service) ListModels(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListModelsInput,
) (*mcp.CallToolResult, ListModelsOutput, error) {
	models, err := s.engine.ListModels(ctx)
	if err != nil {
		return nil, ListModelsOutput{}, fmt.Errorf("list models: %w", err)
	}
	if models == nil {
		models = []string{}
	}
	return nil, ListModelsOutput{Models: models}, nil
}
