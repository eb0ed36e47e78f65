package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/infra/llm"
)

// errRunNotOK is returned when an analysis finishes cancelled or failed.
var errRunNotOK = errors.New("analysis did not complete")

type analyzeOptions struct {
	question string
	full     bool
	provider string
	model    string
	asJSON   bool
}

func analyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze one document and print the answer",
		Long: `Analyze one PDF, DOCX, XLSX or CSV document.

With --question the whole text is sent in one prompt. With --full the text
is split into chunks, summarized in parallel and synthesized. Ctrl-C stops
the run cooperatively.

Examples:
  ragtool analyze report.pdf --question "What is the conclusion?"
  ragtool analyze report.pdf --full --provider openai --model gpt-4o-mini`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.question == "" && !opts.full {
				return errors.New("one of --question or --full is required")
			}
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck
			return runAnalyze(cmd, a, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.question, "question", "q", "", "question to answer about the document")
	cmd.Flags().BoolVar(&opts.full, "full", false, "summarize the whole document")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "ollama, openai, anthropic or perplexity")
	cmd.Flags().StringVar(&opts.model, "model", "", "model name for the provider")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, path string, opts analyzeOptions) error {
	target := a.defaults
	if opts.provider != "" {
		p, ok := llm.ParseProvider(opts.provider)
		if !ok {
			return fmt.Errorf("unsupported provider %q", opts.provider)
		}
		if p != target.Provider {
			target.Credential = ""
		}
		target.Provider = p
	}
	if opts.model != "" {
		target.Model = opts.model
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// a second signal kills the process
			stop()
			a.sw.RequestStop(context.Background())
		case <-done:
		}
	}()

	res, err := a.analyzer.Analyze(context.WithoutCancel(ctx), analysis.Input{
		DocumentPath: path,
		Question:     opts.question,
		FullAnalysis: opts.full,
		Target:       target,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintln(out, res.Text); err != nil {
		return err
	}

	if res.Status != analysis.RunOK {
		return fmt.Errorf("%w: status %s", errRunNotOK, res.Status)
	}
	return nil
}
