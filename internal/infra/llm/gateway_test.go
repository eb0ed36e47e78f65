// Unit tests for HTTPGateway response normalization.
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPGateway(DefaultTable(Endpoints{
		OllamaBaseURL:     srv.URL,
		OpenAIBaseURL:     srv.URL,
		AnthropicBaseURL:  srv.URL,
		PerplexityBaseURL: srv.URL,
		VendorTimeout:     5 * time.Second,
	}), nil)
}

func replyWith(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck
	}
}

func TestHTTPGateway_Send_NormalizesVendorShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider Provider
		model    string
		body     string
		text     string
		kind     FailureKind
	}{
		{"ollama response", ProviderOllama, "llama3", `{"response":" local "}`, "local", ""},
		{"chat content", ProviderOpenAI, "gpt-4o", `{"choices":[{"message":{"content":" hi "}}]}`, "hi", ""},
		{"completion text", ProviderOpenAI, "davinci", `{"choices":[{"text":"done"}]}`, "done", ""},
		{"legacy completion", ProviderAnthropic, "claude-2", `{"completion":" yes"}`, "yes", ""},
		{"perplexity chat", ProviderPerplexity, "sonar", `{"choices":[{"message":{"content":"p"}}]}`, "p", ""},
		{"empty choices", ProviderOpenAI, "gpt-4o", `{"choices":[]}`, "", FailureEmptyResponse},
		{"no choices key", ProviderPerplexity, "sonar", `{"id":"x"}`, "", FailureEmptyResponse},
		{"blank content", ProviderOpenAI, "gpt-4o", `{"choices":[{"message":{"content":"  "}}]}`, "", FailureEmptyResponse},
		{"unknown choice shape", ProviderOpenAI, "gpt-4o", `{"choices":[{"delta":{}}]}`, "", FailureUnrecognizedShape},
		{"non-json 200", ProviderOpenAI, "gpt-4o", `oops`, "", FailureUnrecognizedShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newTestGateway(t, replyWith(http.StatusOK, tt.body))
			resp := g.Send(context.Background(), Request{Prompt: "p", Model: tt.model, Provider: tt.provider, Credential: "k"})
			if tt.kind == "" {
				if !resp.OK() || resp.Text != tt.text {
					t.Errorf("expected text %q, got %+v", tt.text, resp)
				}
				return
			}
			if resp.OK() || resp.Failure.Kind != tt.kind {
				t.Errorf("expected %q, got %+v", tt.kind, resp)
			}
		})
	}
}

func TestHTTPGateway_Send_HTTPErrorKeepsStatusAndBody(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, replyWith(http.StatusUnauthorized, `{"error":{"message":"invalid key"}}`))
	resp := g.Send(context.Background(), Request{Prompt: "p", Model: "gpt-4o", Provider: ProviderOpenAI, Credential: "bad"})
	if resp.OK() || resp.Failure.Kind != FailureHTTP {
		t.Fatalf("expected http failure, got %+v", resp)
	}
	if resp.Failure.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.Failure.Status)
	}
	body, ok := resp.Failure.Body.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded JSON body, got %T", resp.Failure.Body)
	}
	if _, hasErr := body["error"]; !hasErr {
		t.Errorf("expected error key in body, got %v", body)
	}
}

func TestHTTPGateway_Send_HTTPErrorRawBody(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, replyWith(http.StatusBadGateway, "upstream down"))
	resp := g.Send(context.Background(), Request{Prompt: "p", Model: "m", Provider: ProviderOllama})
	if resp.OK() || resp.Failure.Kind != FailureHTTP || resp.Failure.Body != "upstream down" {
		t.Errorf("expected raw body http failure, got %+v", resp.Failure)
	}
}

func TestHTTPGateway_Send_UnsupportedProvider(t *testing.T) {
	t.Parallel()

	g := NewHTTPGateway(NewTable(nil), nil)
	resp := g.Send(context.Background(), Request{Prompt: "p", Model: "m", Provider: "mistral"})
	if resp.OK() || resp.Failure.Kind != FailureUnsupportedProvider {
		t.Errorf("expected unsupported provider, got %+v", resp)
	}
}

func TestHTTPGateway_Send_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := NewHTTPGateway(DefaultTable(Endpoints{OllamaBaseURL: url}), nil)
	resp := g.Send(context.Background(), Request{Prompt: "p", Model: "m", Provider: ProviderOllama})
	if resp.OK() || resp.Failure.Kind != FailureTransport {
		t.Errorf("expected transport error, got %+v", resp)
	}
}

func TestHTTPGateway_Send_VendorTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	g := NewHTTPGateway(DefaultTable(Endpoints{OpenAIBaseURL: srv.URL, VendorTimeout: 50 * time.Millisecond}), nil)
	resp := g.Send(context.Background(), Request{Prompt: "p", Model: "gpt-4o", Provider: ProviderOpenAI, Credential: "k"})
	if resp.OK() || resp.Failure.Kind != FailureTransport {
		t.Errorf("expected transport error on timeout, got %+v", resp)
	}
}

func TestHTTPGateway_Send_WireFormat(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var gotPath, gotAuth string
	var gotBody map[string]any
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`)) //nolint:errcheck
	})

	resp := g.Send(context.Background(), Request{Prompt: "question", Model: "gpt-4o-mini", Provider: ProviderOpenAI, Credential: "sk-1"})
	if !resp.OK() {
		t.Fatalf("unexpected failure %v", resp.Failure)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/v1/chat/completions" {
		t.Errorf("expected chat endpoint, got %q", gotPath)
	}
	if gotAuth != "Bearer sk-1" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody["max_tokens"] != float64(1000) || gotBody["temperature"] != 0.7 {
		t.Errorf("unexpected sampling params %v", gotBody)
	}
}
