// Package google adapts the Google Gemini SDK to the model interfaces.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/convograph/graph/model"
)

// ChatModel implements model.ChatModel for Google's Gemini API.
//
// The Gemini SDK separates system instructions from the conversation, so
// system messages are collected into the model's SystemInstruction. Tool
// specifications are not wired for this provider; tool-calling workflows
// should use the OpenAI adapter.
//
// The underlying client holds a connection; call Close when done.
type ChatModel struct {
	client    *genai.Client
	modelName string
}

// NewChatModel creates a Gemini ChatModel. An empty modelName selects
// gemini-2.0-flash. The context is used for client setup only.
func NewChatModel(ctx context.Context, apiKey, modelName string) (*ChatModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &ChatModel{client: client, modelName: modelName}, nil
}

// Chat implements the model.ChatModel interface.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	gm := m.client.GenerativeModel(m.modelName)

	var system, prompt strings.Builder
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Content)
			continue
		}
		if prompt.Len() > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(msg.Role)
		prompt.WriteString(": ")
		prompt.WriteString(msg.Content)
	}
	if system.Len() > 0 {
		gm.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system.String())},
		}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt.String()))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("Gemini API failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.ChatOut{}, errors.New("no response from Gemini API")
	}

	var out model.ChatOut
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.Text += string(text)
		}
	}
	return out, nil
}

// Close releases the underlying client connection.
func (m *ChatModel) Close() error {
	return m.client.Close()
}
