package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"

	// statusCheckTimeout bounds connection checks and model listing.
	statusCheckTimeout = 2 * time.Second
)

// ─── internal Ollama JSON types ──────────────────────────────────────────────

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaUnloadRequest struct {
	Model     string `json:"model"`
	KeepAlive int    `json:"keep_alive"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
}

type ollamaModelList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ─── capability ─────────────────────────────────────────────────────────────

func ollamaCapability(baseURL string) Capability {
	return Capability{
		BaseURL: baseURL,
		Timeout: 0, // local generation may take arbitrarily long
		Endpoint: func(base, _ string) string {
			return strings.TrimSuffix(base, "/") + "/api/generate"
		},
		Headers: func(string) http.Header { return http.Header{} },
		Payload: func(model, prompt string) any {
			return ollamaGenerateRequest{Model: model, Prompt: prompt, Stream: false}
		},
		Parse: parseOllama,
	}
}

// parseOllama reads the flat "response" field of /api/generate.
func parseOllama(body []byte) Response {
	var resp ollamaGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return FailureResponse(FailureUnrecognizedShape, err.Error())
	}
	if resp.Response == nil {
		return FailureResponse(FailureEmptyResponse, "missing response field")
	}
	text := strings.TrimSpace(*resp.Response)
	if text == "" {
		return FailureResponse(FailureEmptyResponse, "blank response field")
	}
	return TextResponse(text)
}

// ─── local engine administration ────────────────────────────────────────────

// LocalEngine exposes the Ollama management endpoints used by the control
// surface: connection status, model listing and accelerator memory release.
//
// Endpoints used:
//   - POST /api/generate : non-streaming completion, and model unload (keep_alive: 0)
//   - GET  /api/tags     : connection check and installed model list
//   - GET  /api/ps       : models currently loaded in accelerator memory
type LocalEngine struct {
	baseURL    string
	httpClient *http.Client
}

// NewLocalEngine creates a LocalEngine for the Ollama instance at baseURL.
func NewLocalEngine(baseURL string) *LocalEngine {
	return &LocalEngine{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Health calls GET /api/tags: returns nil if Ollama is reachable.
func (e *LocalEngine) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, statusCheckTimeout)
	defer cancel()

	body, err := e.doGet(ctx, "/api/tags")
	if err != nil {
		return fmt.Errorf("ollama healthcheck: %w", err)
	}
	body.Close() //nolint:errcheck
	return nil
}

// ListModels returns the names of the installed models.
func (e *LocalEngine) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, statusCheckTimeout)
	defer cancel()
	return e.modelNames(ctx, "/api/tags")
}

// LoadedModels returns the models currently resident in accelerator memory.
func (e *LocalEngine) LoadedModels(ctx context.Context) ([]string, error) {
	return e.modelNames(ctx, "/api/ps")
}

// Unload asks Ollama to evict model from memory immediately.
func (e *LocalEngine) Unload(ctx context.Context, model string) error {
	body, err := json.Marshal(ollamaUnloadRequest{Model: model, KeepAlive: 0})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ollama unload %s: build request: %w", model, err)
	}
	req.Header.Set(headerContentType, mimeJSON)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unload %s: %w", model, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama unload %s: status %d", model, resp.StatusCode)
	}
	return nil
}

// UnloadAll evicts every loaded model. It keeps going past individual
// failures and returns the first one.
func (e *LocalEngine) UnloadAll(ctx context.Context) error {
	models, err := e.LoadedModels(ctx)
	if err != nil {
		return err
	}
	var first error
	for _, m := range models {
		if uerr := e.Unload(ctx, m); uerr != nil && first == nil {
			first = uerr
		}
	}
	return first
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (e *LocalEngine) modelNames(ctx context.Context, path string) ([]string, error) {
	body, err := e.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	var list ollamaModelList
	if decodeErr := json.NewDecoder(body).Decode(&list); decodeErr != nil {
		return nil, fmt.Errorf("decode %s: %w", path, decodeErr)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// doGet sends a GET request to baseURL+path and returns the response body.
// Caller is responsible for closing the returned ReadCloser.
func (e *LocalEngine) doGet(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("ollama get %s: build request: %w", path, err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama get %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		return nil, fmt.Errorf("ollama get %s: status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}
