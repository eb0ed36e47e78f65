// Package mcptools exposes document analysis as MCP tools over stdio.
package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an MCP server with the analysis tools registered.
func NewServer(svc *Service, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ragtool",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_document",
		Description: "Analyze a local PDF, DOCX, XLSX or CSV file. Answers a question about the document, or with fullAnalysis summarizes it chunk by chunk and synthesizes a global summary.",
	}, svc.AnalyzeDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stop_operations",
		Description: "Request a cooperative stop of every running analysis and unload local models. With rearm, a fresh signal is installed afterwards so new work is accepted.",
	}, svc.StopOperations)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_models",
		Description: "List the models installed in the local inference engine.",
	}, svc.ListModels)

	return server
}

// RunStdio serves the tools on stdin/stdout until the client disconnects or
// ctx is cancelled.
func RunStdio(ctx context.Context, svc *Service, version string) error {
	return NewServer(svc, version).Run(ctx, &mcp.StdioTransport{})
}
