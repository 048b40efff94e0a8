package chat

import (
	"context"

	"github.com/dshills/convograph/graph/model"
)

// EventType tags the externally visible stream events.
type EventType string

const (
	// EventToken carries an incremental answer fragment.
	EventToken EventType = "token"
	// EventStateUpdate reports that a workflow stage completed.
	EventStateUpdate EventType = "state_update"
	// EventInterrupt reports that the run paused awaiting a decision.
	EventInterrupt EventType = "interrupt"
	// EventDone terminates the stream normally.
	EventDone EventType = "done"
	// EventError terminates the stream with a run-fatal failure.
	EventError EventType = "error"
)

// Event is one element of a Runner stream. Exactly one Done or Error event
// ends every stream.
type Event struct {
	Type EventType `json:"type"`

	// Token is set on EventToken.
	Token string `json:"token,omitempty"`

	// Node is set on EventStateUpdate and EventInterrupt.
	Node string `json:"node,omitempty"`

	// Interrupt is set on EventInterrupt and describes the decision the
	// run is waiting for.
	Interrupt map[string]any `json:"interrupt,omitempty"`

	// Err is set on EventError.
	Err error `json:"-"`
}

type tokenSinkKey struct{}

// withTokenSink attaches the per-run token callback the generation stage
// streams through.
func withTokenSink(ctx context.Context, fn model.TokenHandler) context.Context {
	return context.WithValue(ctx, tokenSinkKey{}, fn)
}

func tokenSinkFrom(ctx context.Context) model.TokenHandler {
	fn, _ := ctx.Value(tokenSinkKey{}).(model.TokenHandler)
	return fn
}
