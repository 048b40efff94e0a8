package tool

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRegistryCall(t *testing.T) {
	mock := &MockTool{ToolName: "echo", Responses: []map[string]any{{"out": "hi"}}}
	registry := NewRegistry(mock)

	out, err := registry.Call(context.Background(), "echo", map[string]any{"in": "hi"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out["out"] != "hi" {
		t.Errorf("out = %v, want hi", out["out"])
	}
	if mock.CallCount() != 1 {
		t.Errorf("call count = %d, want 1", mock.CallCount())
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Call(context.Background(), "ghost", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	first := &MockTool{ToolName: "t", Responses: []map[string]any{{"v": 1}}}
	second := &MockTool{ToolName: "t", Responses: []map[string]any{{"v": 2}}}

	registry := NewRegistry(first)
	registry.Register(second)

	out, err := registry.Call(context.Background(), "t", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out["v"] != 2 {
		t.Errorf("v = %v, want 2 from the replacement", out["v"])
	}
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry(
		&MockTool{ToolName: "zeta"},
		&MockTool{ToolName: "alpha"},
	)
	if want := []string{"alpha", "zeta"}; !reflect.DeepEqual(registry.Names(), want) {
		t.Errorf("names = %v, want %v", registry.Names(), want)
	}
	if registry.Len() != 2 {
		t.Errorf("len = %d, want 2", registry.Len())
	}
}

func TestMockToolError(t *testing.T) {
	boom := errors.New("boom")
	mock := &MockTool{ToolName: "t", Err: boom}

	_, err := mock.Call(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if mock.CallCount() != 1 {
		t.Error("failed calls should still be recorded")
	}
}
