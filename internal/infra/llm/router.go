package llm

import (
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Capability is everything the gateway needs to talk to one provider.
type Capability struct {
	BaseURL string
	// Timeout bounds a whole call. Zero means no timeout (local engine).
	Timeout  time.Duration
	Endpoint func(baseURL, model string) string
	Headers  func(credential string) http.Header
	Payload  func(model, prompt string) any
	Parse    func(body []byte) Response
}

// Table is the provider → Capability registry. Each Capability carries the
// endpoint, auth headers, payload builder and response parser of a provider.
type Table struct {
	caps map[Provider]Capability
}

// NewTable creates a Table from an initial set of capabilities.
func NewTable(caps map[Provider]Capability) *Table {
	// copy so the caller cannot mutate the internal map.
	cs := make(map[Provider]Capability, len(caps))
	for k, v := range caps {
		cs[k] = v
	}
	return &Table{caps: cs}
}

// Register adds (or replaces) the capability for a provider.
func (t *Table) Register(p Provider, c Capability) {
	t.caps[p] = c
}

// Lookup returns the capability for p, or an error naming the registered providers.
func (t *Table) Lookup(p Provider) (Capability, error) {
	c, ok := t.caps[p]
	if !ok {
		return Capability{}, fmt.Errorf("provider %q not registered (available: %v)", p, t.Providers())
	}
	return c, nil
}

// Providers returns the registered provider keys in sorted order.
func (t *Table) Providers() []Provider {
	out := make([]Provider, 0, len(t.caps))
	for k := range t.caps {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Endpoints configures the base URL of each provider and the remote timeout.
type Endpoints struct {
	OllamaBaseURL     string
	OpenAIBaseURL     string
	AnthropicBaseURL  string
	PerplexityBaseURL string
	VendorTimeout     time.Duration
}

// DefaultEndpoints returns the public vendor URLs and a local Ollama.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		OllamaBaseURL:     "http://localhost:11434",
		OpenAIBaseURL:     "https://api.openai.com",
		AnthropicBaseURL:  "https://api.anthropic.com",
		PerplexityBaseURL: "https://api.perplexity.ai",
		VendorTimeout:     60 * time.Second,
	}
}

// DefaultTable builds the table for every supported provider.
func DefaultTable(e Endpoints) *Table {
	t := NewTable(nil)
	t.Register(ProviderOllama, ollamaCapability(e.OllamaBaseURL))
	t.Register(ProviderOpenAI, openAICapability(e.OpenAIBaseURL, e.VendorTimeout))
	t.Register(ProviderAnthropic, anthropicCapability(e.AnthropicBaseURL, e.VendorTimeout))
	t.Register(ProviderPerplexity, perplexityCapability(e.PerplexityBaseURL, e.VendorTimeout))
	return t
}
