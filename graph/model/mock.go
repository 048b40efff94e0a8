package model

import (
	"context"
	"strings"
	"sync"
)

// MockChatModel is a test implementation of ChatModel and
// StreamingChatModel.
//
// Example:
//
//	mock := &MockChatModel{
//	    Responses: []ChatOut{{Text: "First"}, {Text: "Second"}},
//	}
//	out, err := mock.Chat(ctx, messages, nil)
//	// Returns "First", then "Second" on subsequent calls.
//
// Error injection:
//
//	mock := &MockChatModel{Err: errors.New("API error")}
type MockChatModel struct {
	// Responses contains the sequence of responses to return. Each call
	// returns the next response; the last response repeats once consumed.
	Responses []ChatOut

	// Err, if set, is returned instead of a response.
	Err error

	// Calls tracks the history of all invocations.
	Calls []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records a single invocation.
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
	Streamed bool
}

// Chat implements the ChatModel interface. The call is recorded regardless
// of success or failure.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}
	return m.next(messages, tools, false)
}

// ChatStream implements the StreamingChatModel interface. The response text
// is delivered through onToken word by word, then returned whole, so tests
// can observe both the stream and the final output.
func (m *MockChatModel) ChatStream(ctx context.Context, messages []Message, tools []ToolSpec, onToken TokenHandler) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}
	out, err := m.next(messages, tools, true)
	if err != nil {
		return ChatOut{}, err
	}
	if onToken != nil {
		for _, tok := range strings.SplitAfter(out.Text, " ") {
			if ctx.Err() != nil {
				return ChatOut{}, ctx.Err()
			}
			if tok != "" {
				onToken(tok)
			}
		}
	}
	return out, nil
}

func (m *MockChatModel) next(messages []Message, tools []ToolSpec, streamed bool) (ChatOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockChatCall{Messages: messages, Tools: tools, Streamed: streamed})

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears the call history and resets the response index.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of recorded invocations.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
