// Package llm defines the normalized request/response contract for every LLM
// backend the service talks to. All types here are shared between the gateway
// and the per-provider capability table.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Provider identifies an LLM backend.
type Provider string

const (
	// ProviderOllama is the local engine. Calls carry no credential and no timeout.
	ProviderOllama     Provider = "ollama"
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderPerplexity Provider = "perplexity"
)

// providerAliases maps the labels shown to users onto provider keys.
var providerAliases = map[string]Provider{
	"ollama":         ProviderOllama,
	"ollama (local)": ProviderOllama,
	"local":          ProviderOllama,
	"openai":         ProviderOpenAI,
	"anthropic":      ProviderAnthropic,
	"perplexity":     ProviderPerplexity,
}

// ParseProvider resolves a provider key or display label, case-insensitively.
func ParseProvider(s string) (Provider, bool) {
	p, ok := providerAliases[strings.ToLower(strings.TrimSpace(s))]
	return p, ok
}

// IsLocal reports whether the provider runs on the local engine.
func (p Provider) IsLocal() bool { return p == ProviderOllama }

// Request is a single prompt sent to one provider. It is built fresh per call.
type Request struct {
	Prompt     string
	Model      string
	Provider   Provider
	Credential string // empty for the local engine
}

// FailureKind classifies why a gateway call produced no text.
type FailureKind string

const (
	FailureUnsupportedProvider FailureKind = "unsupported_provider"
	FailureTransport           FailureKind = "transport_error"
	FailureHTTP                FailureKind = "http_error"
	FailureEmptyResponse       FailureKind = "empty_response"
	FailureUnrecognizedShape   FailureKind = "unrecognized_response_shape"
)

// Failure is the typed error variant of a Response.
type Failure struct {
	Kind FailureKind
	// Status and Body are set for FailureHTTP only. Body holds the decoded
	// JSON error object when the vendor returned JSON, the raw text otherwise.
	Status int
	Body   any
	Detail string
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureHTTP:
		return fmt.Sprintf("api error (%d): %s", f.Status, f.bodyString())
	case FailureUnsupportedProvider:
		return "unsupported provider: " + f.Detail
	case FailureEmptyResponse:
		return "the model returned an empty response"
	case FailureUnrecognizedShape:
		return "unexpected response format from the model"
	default:
		return "request to the model failed: " + f.Detail
	}
}

func (f *Failure) bodyString() string {
	switch b := f.Body.(type) {
	case nil:
		return f.Detail
	case string:
		return b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Sprint(b)
		}
		return string(raw)
	}
}

// Response is either Text or a Failure, never both. Immutable, single use.
type Response struct {
	Text    string
	Failure *Failure
}

// OK reports whether the response carries text.
func (r Response) OK() bool { return r.Failure == nil }

// TextResponse wraps successful model output.
func TextResponse(s string) Response { return Response{Text: s} }

// FailureResponse builds a failed response of the given kind.
func FailureResponse(kind FailureKind, detail string) Response {
	return Response{Failure: &Failure{Kind: kind, Detail: detail}}
}

// httpFailure builds a FailureHTTP response from a non-200 status and body.
func httpFailure(status int, raw []byte) Response {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err == nil {
		return Response{Failure: &Failure{Kind: FailureHTTP, Status: status, Body: parsed}}
	}
	return Response{Failure: &Failure{Kind: FailureHTTP, Status: status, Body: string(raw)}}
}
