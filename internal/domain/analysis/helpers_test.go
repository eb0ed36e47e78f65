package analysis

import (
	"context"
	"strings"
	"sync"

	"github.com/ivghost/ragtool/internal/infra/llm"
)

var testTarget = Target{Provider: llm.ProviderOllama, Model: "llama3"}

// scriptedGateway answers every prompt with "ok" (or reply). Prompts that
// contain a key of fail get a transport failure; prompts that contain a key
// of block wait for ctx to end first.
type scriptedGateway struct {
	fail  map[string]bool
	block map[string]bool
	reply func(prompt string) llm.Response

	mu      sync.Mutex
	prompts []string
}

func (g *scriptedGateway) Send(ctx context.Context, req llm.Request) llm.Response {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.mu.Unlock()

	for marker := range g.block {
		if strings.Contains(req.Prompt, marker) {
			<-ctx.Done()
			return llm.FailureResponse(llm.FailureTransport, ctx.Err().Error())
		}
	}
	for marker := range g.fail {
		if strings.Contains(req.Prompt, marker) {
			return llm.FailureResponse(llm.FailureTransport, "connection refused")
		}
	}
	if g.reply != nil {
		return g.reply(req.Prompt)
	}
	return llm.TextResponse("ok")
}

func (g *scriptedGateway) sent() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events map[string][]any
}

func (b *recordingBus) Publish(topic string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.events = map[string][]any{}
	}
	b.events[topic] = append(b.events[topic], payload)
}

func (b *recordingBus) topic(name string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[name]
}

// stubExtractor returns text after consulting the checkpoint once per page.
type stubExtractor struct {
	pages []string
	err   error
}

func (e stubExtractor) Extract(_ context.Context, _ string, checkpoint func() error) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	var b strings.Builder
	for _, p := range e.pages {
		if err := checkpoint(); err != nil {
			return "", err
		}
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String(), nil
}
