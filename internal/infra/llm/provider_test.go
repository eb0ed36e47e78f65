// Gateway contract: interface satisfaction and provider parsing.
package llm

import (
	"context"
	"testing"
)

// TestHTTPGateway_ImplementsGateway is a compile-time check.
func TestHTTPGateway_ImplementsGateway(t *testing.T) {
	t.Parallel()

	var _ Gateway = &HTTPGateway{}
	var _ Gateway = GatewayFunc(func(context.Context, Request) Response { return Response{} })
}

func TestParseProvider_AcceptsKeysAndLabels(t *testing.T) {
	t.Parallel()

	cases := map[string]Provider{
		"ollama":         ProviderOllama,
		"Ollama (local)": ProviderOllama,
		" OpenAI ":       ProviderOpenAI,
		"anthropic":      ProviderAnthropic,
		"PERPLEXITY":     ProviderPerplexity,
	}
	for in, want := range cases {
		got, ok := ParseProvider(in)
		if !ok || got != want {
			t.Errorf("ParseProvider(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseProvider("mistral"); ok {
		t.Error("expected mistral to be rejected")
	}
}

func TestFailure_Error_RendersByKind(t *testing.T) {
	t.Parallel()

	http := httpFailure(401, []byte(`{"error":"bad key"}`)).Failure
	if got := http.Error(); got != `api error (401): {"error":"bad key"}` {
		t.Errorf("http failure = %q", got)
	}
	raw := httpFailure(502, []byte("bad gateway")).Failure
	if got := raw.Error(); got != "api error (502): bad gateway" {
		t.Errorf("raw http failure = %q", got)
	}
	if _, isString := raw.Body.(string); !isString {
		t.Errorf("expected non-JSON body to stay a string, got %T", raw.Body)
	}
	empty := FailureResponse(FailureEmptyResponse, "x").Failure
	if empty.Error() != "the model returned an empty response" {
		t.Errorf("empty failure = %q", empty.Error())
	}
}
