package graph

import (
	"context"
	"errors"
	"testing"
)

type testState struct {
	Log   []string `json:"log,omitempty"`
	Val   string   `json:"val,omitempty"`
	Label string   `json:"label,omitempty"`
}

func mergeTest(prev, delta testState) testState {
	out := prev
	if len(delta.Log) > 0 {
		log := make([]string, 0, len(prev.Log)+len(delta.Log))
		log = append(log, prev.Log...)
		log = append(log, delta.Log...)
		out.Log = log
	}
	if delta.Val != "" {
		out.Val = delta.Val
	}
	if delta.Label != "" {
		out.Label = delta.Label
	}
	return out
}

// logNode returns a node that records its ID in the state log.
func logNode(id string) NodeFunc[testState] {
	return func(ctx context.Context, s testState) NodeResult[testState] {
		return NodeResult[testState]{Delta: testState{Log: []string{id}}}
	}
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EngineError with code %s, got %T: %v", code, err, err)
	}
	if ee.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, ee.Code, ee.Message)
	}
}

func TestBuilderValidation(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		_, err := NewBuilder(mergeTest).Compile()
		wantCode(t, err, "EMPTY_GRAPH")
	})

	t.Run("missing reducer", func(t *testing.T) {
		b := NewBuilder[testState](nil)
		b.AddNode("a", logNode("a"))
		b.AddEdge(Start, "a")
		b.AddEdge("a", End)
		_, err := b.Compile()
		wantCode(t, err, "MISSING_REDUCER")
	})

	t.Run("reserved node ID", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode(Start, logNode("x"))
		_, err := b.Compile()
		wantCode(t, err, "INVALID_NODE")
	})

	t.Run("nil node", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", nil)
		_, err := b.Compile()
		wantCode(t, err, "INVALID_NODE")
	})

	t.Run("duplicate node", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddNode("a", logNode("a"))
		_, err := b.Compile()
		wantCode(t, err, "DUPLICATE_NODE")
	})

	t.Run("no start edge", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddEdge("a", End)
		_, err := b.Compile()
		wantCode(t, err, "NO_START_EDGE")
	})

	t.Run("edge to unknown node", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddEdge(Start, "a")
		b.AddEdge("a", "ghost")
		_, err := b.Compile()
		wantCode(t, err, "NODE_NOT_FOUND")
	})

	t.Run("unreachable node", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddNode("island", logNode("island"))
		b.AddEdge(Start, "a")
		b.AddEdge("a", End)
		b.AddEdge("island", End)
		_, err := b.Compile()
		wantCode(t, err, "UNREACHABLE_NODE")
	})

	t.Run("no path to end", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddNode("sink", logNode("sink"))
		b.AddEdge(Start, "a")
		b.AddEdge("a", "sink")
		b.AddEdge("a", End)
		_, err := b.Compile()
		wantCode(t, err, "NO_TERMINATION")
	})

	t.Run("static and conditional out-edges", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddNode("x", logNode("x"))
		b.AddEdge(Start, "a")
		b.AddEdge("a", "x")
		b.AddConditionalEdges("a", func(s testState) string { return "go" },
			map[string]string{"go": "x"})
		b.AddEdge("x", End)
		_, err := b.Compile()
		wantCode(t, err, "AMBIGUOUS_ROUTING")
	})

	t.Run("conditional target may not be a barrier", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddBarrier("join", logNode("join"))
		b.AddEdge(Start, "a")
		b.AddConditionalEdges("a", func(s testState) string { return "go" },
			map[string]string{"go": "join"})
		b.AddEdge("join", End)
		_, err := b.Compile()
		wantCode(t, err, "INVALID_EDGE")
	})

	t.Run("unjoined conditional source", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddNode("b", logNode("b"))
		b.AddNode("router", logNode("router"))
		b.AddNode("x", logNode("x"))
		b.AddEdge(Start, "a")
		b.AddEdge(Start, "b")
		b.AddEdge("a", "router")
		b.AddEdge("b", "router")
		b.AddConditionalEdges("router", func(s testState) string { return "go" },
			map[string]string{"go": "x"})
		b.AddEdge("x", End)
		_, err := b.Compile()
		wantCode(t, err, "UNJOINED_ROUTER")
	})

	t.Run("barrier conditional source is allowed", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.AddNode("b", logNode("b"))
		b.AddBarrier("join", logNode("join"))
		b.AddNode("x", logNode("x"))
		b.AddEdge(Start, "a")
		b.AddEdge(Start, "b")
		b.AddEdge("a", "join")
		b.AddEdge("b", "join")
		b.AddConditionalEdges("join", func(s testState) string { return "go" },
			map[string]string{"go": "x"})
		b.AddEdge("x", End)
		g, err := b.Compile()
		if err != nil {
			t.Fatalf("unexpected compile error: %v", err)
		}
		if !g.IsBarrier("join") {
			t.Error("join should be a barrier")
		}
	})

	t.Run("policy for unknown node", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.SetPolicy("ghost", NodePolicy{})
		b.AddNode("a", logNode("a"))
		b.AddEdge(Start, "a")
		b.AddEdge("a", End)
		_, err := b.Compile()
		wantCode(t, err, "NODE_NOT_FOUND")
	})

	t.Run("invalid retry policy", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("a", logNode("a"))
		b.SetPolicy("a", NodePolicy{RetryPolicy: &RetryPolicy{MaxAttempts: 0}})
		b.AddEdge(Start, "a")
		b.AddEdge("a", End)
		_, err := b.Compile()
		if !errors.Is(err, ErrInvalidRetryPolicy) {
			t.Fatalf("expected ErrInvalidRetryPolicy, got %v", err)
		}
	})

	t.Run("first error wins", func(t *testing.T) {
		b := NewBuilder(mergeTest)
		b.AddNode("", logNode("x"))
		b.AddNode("a", logNode("a"))
		b.AddNode("a", logNode("a"))
		_, err := b.Compile()
		wantCode(t, err, "INVALID_NODE")
	})
}

func TestCompileValidGraph(t *testing.T) {
	b := NewBuilder(mergeTest)
	b.AddNode("a", logNode("a"))
	b.AddNode("b", logNode("b"))
	b.AddEdge(Start, "a")
	b.AddEdge("a", "b")
	b.AddEdge("b", End)

	g, err := b.Compile()
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if g.Policy("a") != nil {
		t.Error("expected no policy for a")
	}
	if g.IsBarrier("a") {
		t.Error("a should not be a barrier")
	}
}
