package model

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMockChatModelSequence(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "first"}, {Text: "second"}}}
	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	for i, want := range []string{"first", "second", "second"} {
		out, err := mock.Chat(ctx, msgs, nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if out.Text != want {
			t.Errorf("call %d: text = %q, want %q", i, out.Text, want)
		}
	}
	if mock.CallCount() != 3 {
		t.Errorf("call count = %d, want 3", mock.CallCount())
	}
}

func TestMockChatModelError(t *testing.T) {
	boom := errors.New("API error")
	mock := &MockChatModel{Err: boom}

	_, err := mock.Chat(context.Background(), nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if mock.CallCount() != 1 {
		t.Error("failed calls should still be recorded")
	}
}

func TestMockChatModelStream(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "the quick brown fox"}}}

	var tokens []string
	out, err := mock.ChatStream(context.Background(), nil, nil, func(token string) {
		tokens = append(tokens, token)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if joined := strings.Join(tokens, ""); joined != out.Text {
		t.Errorf("streamed %q, final %q; want them equal", joined, out.Text)
	}
	if len(tokens) != 4 {
		t.Errorf("token count = %d, want 4", len(tokens))
	}
	if !mock.Calls[0].Streamed {
		t.Error("call should be recorded as streamed")
	}
}

func TestMockChatModelReset(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "a"}, {Text: "b"}}}
	ctx := context.Background()

	mock.Chat(ctx, nil, nil)
	mock.Reset()

	out, _ := mock.Chat(ctx, nil, nil)
	if out.Text != "a" {
		t.Errorf("text after reset = %q, want a", out.Text)
	}
	if mock.CallCount() != 1 {
		t.Errorf("call count after reset = %d, want 1", mock.CallCount())
	}
}

func TestMockChatModelCancelledContext(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "x"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mock.Chat(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
