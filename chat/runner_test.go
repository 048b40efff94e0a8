package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/convograph/graph/model"
	"github.com/dshills/convograph/graph/tool"
)

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("stream did not close; got %d events", len(out))
		}
	}
}

func tokensOf(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == EventToken {
			b.WriteString(ev.Token)
		}
	}
	return b.String()
}

func nodesOf(events []Event) []string {
	var nodes []string
	for _, ev := range events {
		if ev.Type == EventStateUpdate {
			nodes = append(nodes, ev.Node)
		}
	}
	return nodes
}

func TestStreamEventSequence(t *testing.T) {
	primary, lite := webOnlyResponses()
	f := newFixture(t, primary, lite)

	events := collect(t, f.runner.Stream(context.Background(), Request{
		UserID: "u1", SessionID: "s1", Query: "What is the capital of France?",
	}))

	require.NotEmpty(t, events)
	assert.Equal(t, EventDone, events[len(events)-1].Type, "stream ends with done")
	assert.Equal(t, "Paris is the capital of France.", tokensOf(events),
		"streamed tokens reassemble the final answer")

	// Every executed stage reports a state update, in wave order.
	assert.Equal(t, []string{
		NodeMemoryImport, NodeTitle,
		NodeIntent,
		NodeConverge,
		NodeWebSearch,
		NodeRespond,
		NodeSummarize,
	}, nodesOf(events))

	for _, ev := range events {
		assert.NotEqual(t, EventError, ev.Type)
		assert.NotEqual(t, EventInterrupt, ev.Type)
	}

	// Tokens arrive during the respond stage, before its state update.
	var firstToken, respondUpdate int
	for i, ev := range events {
		if ev.Type == EventToken && firstToken == 0 {
			firstToken = i
		}
		if ev.Type == EventStateUpdate && ev.Node == NodeRespond {
			respondUpdate = i
		}
	}
	assert.Less(t, firstToken, respondUpdate)
}

func TestStreamError(t *testing.T) {
	primary, lite := webOnlyResponses()
	f := newFixture(t, primary, lite)
	// Lite failures are soft for titles and fatal for summaries, so the run
	// streams normally until the persistence stage and then errors.
	f.lite.Err = assert.AnError

	events := collect(t, f.runner.Stream(context.Background(), Request{
		UserID: "u1", SessionID: "s1", Query: "hello",
	}))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, EventError, last.Type)
	assert.ErrorIs(t, last.Err, assert.AnError)
	for _, ev := range events {
		assert.NotEqual(t, EventDone, ev.Type, "an errored stream has no done terminator")
	}
}

func TestStreamInterruptAndResume(t *testing.T) {
	primary := []model.ChatOut{
		{Text: "web"},
		{ToolCalls: []model.ToolCall{{Name: "send_email", Input: map[string]any{"to": "a@example.com"}}}},
		{Text: "Email sent."},
	}
	_, lite := webOnlyResponses()
	f := newFixture(t, primary, lite)
	mockTool := &tool.MockTool{ToolName: "send_email", Responses: []map[string]any{{"status": "sent"}}}
	f.wf.Tools = tool.NewRegistry(mockTool)
	f.wf.ToolSpecs = []model.ToolSpec{{Name: "send_email", Description: "send an email"}}
	runner, err := NewRunner(f.wf)
	require.NoError(t, err)
	ctx := context.Background()

	events := collect(t, runner.Stream(ctx, Request{UserID: "u1", SessionID: "s1", Query: "email Bob"}))
	require.GreaterOrEqual(t, len(events), 2)
	intr := events[len(events)-2]
	require.Equal(t, EventInterrupt, intr.Type)
	assert.Equal(t, NodeRespond, intr.Node)
	assert.Equal(t, "send_email", intr.Interrupt["action"])
	assert.Equal(t, EventDone, events[len(events)-1].Type)

	resumed := collect(t, runner.ResumeStream(ctx, "s1", true))
	require.NotEmpty(t, resumed)
	assert.Equal(t, EventDone, resumed[len(resumed)-1].Type)
	assert.Equal(t, "Email sent.", tokensOf(resumed))
	assert.Equal(t, []string{NodeRespond, NodeSummarize}, nodesOf(resumed))
	assert.Equal(t, 1, mockTool.CallCount())
}

// gatedModel streams one token per tick on gate, making mid-stream timing
// deterministic for the stop test.
type gatedModel struct {
	tokens []string
	gate   chan struct{}
}

func (g *gatedModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	return model.ChatOut{Text: "web"}, nil
}

func (g *gatedModel) ChatStream(ctx context.Context, messages []model.Message, tools []model.ToolSpec, onToken model.TokenHandler) (model.ChatOut, error) {
	var b strings.Builder
	for _, tok := range g.tokens {
		<-g.gate
		if ctx.Err() != nil {
			return model.ChatOut{}, ctx.Err()
		}
		onToken(tok)
		b.WriteString(tok)
	}
	return model.ChatOut{Text: b.String()}, nil
}

func TestStreamStopMidGeneration(t *testing.T) {
	_, lite := webOnlyResponses()
	f := newFixture(t, nil, lite)
	gated := &gatedModel{tokens: []string{"one ", "two ", "three"}, gate: make(chan struct{})}
	f.wf.Model = gated
	runner, err := NewRunner(f.wf)
	require.NoError(t, err)

	events := runner.Stream(context.Background(), Request{UserID: "u1", SessionID: "s1", Query: "count"})

	// Release exactly one token, then ask for a stop and open the gate.
	gated.gate <- struct{}{}
	var seen []Event
	for ev := range events {
		seen = append(seen, ev)
		if ev.Type == EventToken {
			break
		}
	}
	runner.RequestStop("s1")
	close(gated.gate)

	seen = append(seen, collect(t, events)...)

	assert.Equal(t, "one ", tokensOf(seen), "no tokens after the stop request")
	require.NotEmpty(t, seen)
	assert.Equal(t, EventDone, seen[len(seen)-1].Type, "a stopped stream still ends with done")
	for _, ev := range seen {
		assert.NotEqual(t, EventError, ev.Type, "caller-requested stops are not errors")
	}
}

func TestRequestThreadDefaultsToSession(t *testing.T) {
	assert.Equal(t, "s1", Request{SessionID: "s1"}.threadID())
	assert.Equal(t, "custom", Request{SessionID: "s1", ThreadID: "custom"}.threadID())
}
