// Command ragtool analyzes documents with local or hosted language models.
//
// Usage:
//
//	ragtool serve                       start the HTTP control surface
//	ragtool analyze FILE --question Q   ask one question about a document
//	ragtool analyze FILE --full         summarize a whole document
//	ragtool mcp                         serve the MCP tools on stdio
//	ragtool token SUBJECT               mint a bearer token for the API
//	ragtool version                     print version information
//
// Configuration comes from RAGTOOL_* environment variables and an optional
// YAML file named by RAGTOOL_CONFIG.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivghost/ragtool/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, out, errOut io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(errOut, "error:", err) //nolint:errcheck
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ragtool",
		Short:         "ragtool - document analysis with local and hosted LLMs",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(version.String() + "\n")

	root.AddCommand(serveCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
