package llm

import "context"

// Gateway sends one normalized request and returns one normalized response.
// Implementations must never panic or return a Go error past this boundary:
// every outcome, including transport failures, is a Response value.
type Gateway interface {
	Send(ctx context.Context, req Request) Response
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req Request) Response

// Send calls f(ctx, req).
func (f GatewayFunc) Send(ctx context.Context, req Request) Response { return f(ctx, req) }
