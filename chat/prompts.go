package chat

import (
	"fmt"
	"strings"
)

// Prompt texts for the model-backed stages. Kept package-level so the node
// functions stay focused on control flow.
const (
	intentSystemPrompt = `You are an intent classifier for a conversational assistant.
Given the user's question, answer with exactly one word:
- "retrieval" if the question is about the user's own documents or uploaded knowledge
- "web" if the question needs current information from the internet
- "research" if it needs both the user's documents and the internet
Answer with the single word only.`

	titleSystemPrompt = `Generate a short title (at most six words) for a conversation
that starts with the user's message. Reply with the title only, no quotes.`

	summarySystemPrompt = `You maintain the rolling memory of a conversation.
Rewrite the summary so it covers the previous summary and the new turns.
Keep it under 150 words and reply with the new summary only.`

	answerSystemPrompt = `You are a helpful assistant. Answer the user's question using
the conversation summary and the context below when they are relevant. If the
context does not help, answer from your own knowledge and say so.`
)

// parseRoute maps a classifier completion to a routing outcome. Anything
// unrecognized defaults to web search so the run always has a branch.
func parseRoute(completion string) Route {
	c := strings.ToLower(completion)
	switch {
	case strings.Contains(c, "research"), strings.Contains(c, "both"):
		return RouteBoth
	case strings.Contains(c, "rag"), strings.Contains(c, "retrieval"):
		return RouteRetrieval
	default:
		return RouteWeb
	}
}

// summaryPrompt renders the user message for summary regeneration. The
// window passed in is the pre-truncation history including the turn that
// just completed.
func summaryPrompt(prior string, window []Turn) string {
	var b strings.Builder
	b.WriteString("Previous summary:\n")
	if prior == "" {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(prior)
		b.WriteString("\n")
	}
	b.WriteString("\nConversation turns:\n")
	for _, t := range window {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.User, t.Agent)
	}
	return b.String()
}

// answerContext renders the branch outputs into the generation prompt.
// Branches that did not run contribute nothing.
func answerContext(s State) string {
	var b strings.Builder
	if s.Summary != "" {
		b.WriteString("Conversation summary:\n")
		b.WriteString(s.Summary)
		b.WriteString("\n\n")
	}
	if s.RetrievalOutput != nil {
		b.WriteString("Document context:\n")
		b.WriteString(*s.RetrievalOutput)
		b.WriteString("\n\n")
	}
	if s.WebOutput != nil {
		b.WriteString("Web context:\n")
		b.WriteString(*s.WebOutput)
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
