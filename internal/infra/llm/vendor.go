package llm

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	vendorMaxTokens   = 1000
	vendorTemperature = 0.7
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type anthropicCompleteRequest struct {
	Model             string `json:"model"`
	Prompt            string `json:"prompt"`
	MaxTokensToSample int    `json:"max_tokens_to_sample"`
}

// choicesEnvelope covers chat-style, completion-style and the legacy
// Anthropic "completion" field. Pointers distinguish absent from empty.
type choicesEnvelope struct {
	Choices    *[]choice `json:"choices"`
	Completion *string   `json:"completion"`
}

type choice struct {
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
	Text *string `json:"text"`
}

func openAICapability(baseURL string, timeout time.Duration) Capability {
	return Capability{
		BaseURL: baseURL,
		Timeout: timeout,
		Endpoint: func(base, model string) string {
			if isChatModel(model) {
				return strings.TrimSuffix(base, "/") + "/v1/chat/completions"
			}
			return strings.TrimSuffix(base, "/") + "/v1/completions"
		},
		Headers: bearerHeaders,
		Payload: func(model, prompt string) any {
			if isChatModel(model) {
				return newChatRequest(model, prompt)
			}
			return completionRequest{Model: model, Prompt: prompt, MaxTokens: vendorMaxTokens, Temperature: vendorTemperature}
		},
		Parse: parseChoices,
	}
}

func anthropicCapability(baseURL string, timeout time.Duration) Capability {
	return Capability{
		BaseURL: baseURL,
		Timeout: timeout,
		Endpoint: func(base, _ string) string {
			return strings.TrimSuffix(base, "/") + "/v1/complete"
		},
		Headers: func(credential string) http.Header {
			h := http.Header{}
			h.Set("x-api-key", credential)
			return h
		},
		Payload: func(model, prompt string) any {
			return anthropicCompleteRequest{
				Model:             model,
				Prompt:            "\n\nHuman: " + prompt + "\n\nAssistant:",
				MaxTokensToSample: vendorMaxTokens,
			}
		},
		Parse: parseChoices,
	}
}

func perplexityCapability(baseURL string, timeout time.Duration) Capability {
	return Capability{
		BaseURL: baseURL,
		Timeout: timeout,
		Endpoint: func(base, _ string) string {
			return strings.TrimSuffix(base, "/") + "/v1/chat/completions"
		},
		Headers: bearerHeaders,
		Payload: func(model, prompt string) any { return newChatRequest(model, prompt) },
		Parse:   parseChoices,
	}
}

func newChatRequest(model, prompt string) chatRequest {
	return chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   vendorMaxTokens,
		Temperature: vendorTemperature,
	}
}

func bearerHeaders(credential string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+credential)
	return h
}

// isChatModel routes gpt-* models to the chat endpoint.
func isChatModel(model string) bool {
	return strings.Contains(strings.ToLower(model), "gpt")
}

// parseChoices normalizes choices[0].message.content, then choices[0].text,
// then the top-level completion field.
func parseChoices(body []byte) Response {
	var env choicesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return FailureResponse(FailureUnrecognizedShape, err.Error())
	}

	if env.Choices == nil || len(*env.Choices) == 0 {
		if env.Completion != nil {
			return nonBlank(*env.Completion)
		}
		return FailureResponse(FailureEmptyResponse, "no choices in response")
	}

	first := (*env.Choices)[0]
	if first.Message != nil && first.Message.Content != nil {
		return nonBlank(*first.Message.Content)
	}
	if first.Text != nil {
		return nonBlank(*first.Text)
	}
	return FailureResponse(FailureUnrecognizedShape, "first choice has neither message.content nor text")
}

func nonBlank(s string) Response {
	s = strings.TrimSpace(s)
	if s == "" {
		return FailureResponse(FailureEmptyResponse, "blank text")
	}
	return TextResponse(s)
}
