package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivghost/ragtool/internal/mcptools"
	"github.com/ivghost/ragtool/internal/version"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve analyze_document, stop_operations and list_models over MCP stdio",
		Long: `Serve the analysis tools over the Model Context Protocol on stdin/stdout.

Logs go to stderr (and RAGTOOL_LOG_FILE when set) so stdout stays a clean
protocol stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := mcptools.NewService(a.analyzer, a.sw, a.engine, a.defaults, a.logger)
			a.logger.Info("mcp server starting", "transport", "stdio")
			return mcptools.RunStdio(ctx, svc, version.Version)
		},
	}
}
