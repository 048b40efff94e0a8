// Package model provides LLM integration adapters.
package model

import "context"

// ChatModel is the interface for LLM chat providers.
//
// It abstracts the differences between providers (OpenAI, Anthropic,
// Google, local models) behind a single chat-completion call.
// Implementations handle provider authentication, convert the standard
// Message format to the provider's wire format, respect context
// cancellation, and map provider errors to ordinary Go errors.
//
// Example:
//
//	m := openai.NewChatModel(apiKey, "gpt-4o")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "What is the capital of France?"},
//	}, nil)
type ChatModel interface {
	// Chat sends messages to the LLM and returns the response. The model
	// may answer with text, tool calls, or both.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// TokenHandler receives incremental output tokens during streaming.
type TokenHandler func(token string)

// StreamingChatModel is implemented by providers that can stream tokens.
// ChatStream behaves like Chat but invokes onToken for each output chunk
// as it arrives; the full response is still returned at the end.
type StreamingChatModel interface {
	ChatModel
	ChatStream(ctx context.Context, messages []Message, tools []ToolSpec, onToken TokenHandler) (ChatOut, error)
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role identifies the message sender. Use the Role* constants.
	Role string

	// Content contains the message text.
	Content string
}

// Standard role constants, aligned with the conventions of the major
// providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the LLM may call. Schema follows JSON Schema
// and describes the expected input parameters.
type ToolSpec struct {
	// Name uniquely identifies the tool.
	Name string

	// Description explains what the tool does; the LLM uses it to decide
	// when to call the tool.
	Description string

	// Schema defines the tool's input parameters in JSON Schema format.
	// Optional for tools with no parameters.
	Schema map[string]any
}

// ChatOut is the output of a chat completion.
type ChatOut struct {
	// Text contains the generated response. May be empty when the model
	// only requests tool calls.
	Text string

	// ToolCalls contains tools the model wants to invoke.
	ToolCalls []ToolCall
}

// ToolCall is a request from the model to invoke a specific tool.
type ToolCall struct {
	// Name matches a ToolSpec.Name from the available tools.
	Name string

	// Input contains the call parameters, shaped by the tool's schema.
	Input map[string]any
}
