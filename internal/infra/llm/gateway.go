package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a vendor body is read.
const maxResponseBytes = 8 << 20

// HTTPGateway is the production Gateway. It turns a Request into one HTTP
// call using the capability table and folds every outcome into a Response.
type HTTPGateway struct {
	table      *Table
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPGateway creates a gateway over table. A nil logger discards output.
func NewHTTPGateway(table *Table, logger *slog.Logger) *HTTPGateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPGateway{
		table:      table,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Send implements Gateway.
func (g *HTTPGateway) Send(ctx context.Context, req Request) Response {
	capability, err := g.table.Lookup(req.Provider)
	if err != nil {
		return FailureResponse(FailureUnsupportedProvider, string(req.Provider))
	}

	if capability.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, capability.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp := g.do(ctx, capability, req)
	attrs := []any{
		"provider", req.Provider,
		"model", req.Model,
		"elapsed", time.Since(start),
	}
	if resp.OK() {
		g.logger.Debug("llm call succeeded", attrs...)
	} else {
		g.logger.Warn("llm call failed", append(attrs, "kind", resp.Failure.Kind, "error", resp.Failure.Error())...)
	}
	return resp
}

func (g *HTTPGateway) do(ctx context.Context, c Capability, req Request) Response {
	body, err := json.Marshal(c.Payload(req.Model, req.Prompt))
	if err != nil {
		return FailureResponse(FailureTransport, fmt.Sprintf("marshal payload: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(c.BaseURL, req.Model), bytes.NewReader(body))
	if err != nil {
		return FailureResponse(FailureTransport, fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set(headerContentType, mimeJSON)
	for k, vs := range c.Headers(req.Credential) {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return FailureResponse(FailureTransport, err.Error())
	}
	defer httpResp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return FailureResponse(FailureTransport, fmt.Sprintf("read body: %v", err))
	}
	if httpResp.StatusCode != http.StatusOK {
		return httpFailure(httpResp.StatusCode, raw)
	}
	return c.Parse(raw)
}
