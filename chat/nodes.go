package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/convograph/chat/retrieval"
	"github.com/dshills/convograph/chat/storage"
	"github.com/dshills/convograph/graph"
	"github.com/dshills/convograph/graph/model"
	"github.com/dshills/convograph/graph/tool"
)

// Node identifiers in the conversational workflow graph.
const (
	NodeMemoryImport = "memory_import"
	NodeTitle        = "title"
	NodeIntent       = "intent"
	NodeConverge     = "converge"
	NodeRetrieve     = "retrieve"
	NodeWebSearch    = "web_search"
	NodeMixedSearch  = "mixed_search"
	NodeRespond      = "respond"
	NodeSummarize    = "summarize"
)

const (
	defaultTitle   = "New Session"
	retrievalLimit = 5

	noDocumentsFallback = "no relevant documents found"
	noWebFallback       = "no web results found"
)

// Workflow holds the collaborators the conversational graph needs.
// Sessions, Turns, Summaries, Model, Retriever, and Web are required; the
// rest are optional.
type Workflow struct {
	Sessions  storage.SessionStore
	Turns     storage.TurnStore
	Summaries storage.SummaryStore

	// Model answers questions and classifies intent. When it also
	// implements model.StreamingChatModel, answer generation streams
	// tokens to Runner.Stream consumers.
	Model model.ChatModel

	// Lite generates titles and summaries. Defaults to Model when nil, but
	// a smaller, cheaper model is the intended deployment.
	Lite model.ChatModel

	Retriever retrieval.Retriever
	Web       retrieval.WebSearcher

	// Tools enables human-in-the-loop tool approval: when the model
	// requests a call to a registered tool, the run interrupts until the
	// caller resumes with a decision. ToolSpecs is the set advertised to
	// the model.
	Tools     *tool.Registry
	ToolSpecs []model.ToolSpec

	Logger *slog.Logger
}

func (w *Workflow) validate() error {
	switch {
	case w.Sessions == nil:
		return errors.New("chat: SessionStore is required")
	case w.Turns == nil:
		return errors.New("chat: TurnStore is required")
	case w.Summaries == nil:
		return errors.New("chat: SummaryStore is required")
	case w.Model == nil:
		return errors.New("chat: Model is required")
	case w.Retriever == nil:
		return errors.New("chat: Retriever is required")
	case w.Web == nil:
		return errors.New("chat: WebSearcher is required")
	}
	return nil
}

func (w *Workflow) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

func (w *Workflow) liteModel() model.ChatModel {
	if w.Lite != nil {
		return w.Lite
	}
	return w.Model
}

// memoryImport loads conversation memory. A state that already carries
// history is a warm hit and skips storage entirely; otherwise the session
// record is ensured and the summary plus the most recent turns are loaded
// cold.
func (w *Workflow) memoryImport(ctx context.Context, s State) graph.NodeResult[State] {
	if len(s.History) > 0 {
		return graph.NodeResult[State]{}
	}

	if _, err := w.Sessions.Get(ctx, s.SessionID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return graph.NodeResult[State]{Err: fmt.Errorf("load session: %w", err)}
		}
		created := storage.Session{ID: s.SessionID, UserID: s.UserID, Title: defaultTitle}
		if err := w.Sessions.Create(ctx, created); err != nil {
			return graph.NodeResult[State]{Err: fmt.Errorf("create session: %w", err)}
		}
	}

	summary, err := w.Summaries.Summary(ctx, s.SessionID)
	if err != nil {
		return graph.NodeResult[State]{Err: fmt.Errorf("load summary: %w", err)}
	}

	// Storage returns newest first; prompts want oldest first.
	recent, err := w.Turns.Recent(ctx, s.SessionID, RecentTurns)
	if err != nil {
		return graph.NodeResult[State]{Err: fmt.Errorf("load turns: %w", err)}
	}
	history := make([]Turn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		history = append(history, Turn{User: recent[i].User, Agent: recent[i].Agent})
	}

	return graph.NodeResult[State]{Delta: State{History: history, Summary: summary}}
}

// title generates the session title on the first run. Once a title exists,
// in state or in storage, the node is a no-op with an empty delta. Title
// persistence is best effort; the generated title still lands in state.
func (w *Workflow) title(ctx context.Context, s State) graph.NodeResult[State] {
	if s.Title != "" {
		return graph.NodeResult[State]{}
	}

	if sess, err := w.Sessions.Get(ctx, s.SessionID); err == nil {
		if sess.Title != "" && sess.Title != defaultTitle {
			return graph.NodeResult[State]{Delta: State{Title: sess.Title}}
		}
	}

	out, err := w.liteModel().Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: titleSystemPrompt},
		{Role: model.RoleUser, Content: s.Query},
	}, nil)
	if err != nil {
		w.logger().Warn("title generation failed", "session", s.SessionID, "error", err)
		return graph.NodeResult[State]{}
	}
	title := strings.TrimSpace(out.Text)
	if title == "" {
		return graph.NodeResult[State]{}
	}

	if err := w.Sessions.UpdateTitle(ctx, s.SessionID, title); err != nil {
		w.logger().Warn("title persistence failed", "session", s.SessionID, "error", err)
	}
	return graph.NodeResult[State]{Delta: State{Title: title}}
}

// intent classifies the query into a routing outcome. Classification
// failure is not fatal; the run falls back to web search.
func (w *Workflow) intent(ctx context.Context, s State) graph.NodeResult[State] {
	out, err := w.Model.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: intentSystemPrompt},
		{Role: model.RoleUser, Content: s.Query},
	}, nil)
	if err != nil {
		w.logger().Warn("intent classification failed, defaulting to web", "session", s.SessionID, "error", err)
		return graph.NodeResult[State]{Delta: State{Route: RouteWeb}}
	}
	return graph.NodeResult[State]{Delta: State{Route: parseRoute(out.Text)}}
}

// converge joins the memory and title branches. It mutates nothing; the
// routing decision hangs off its conditional edges.
func (w *Workflow) converge(ctx context.Context, s State) graph.NodeResult[State] {
	return graph.NodeResult[State]{}
}

// routeIntent maps the classified route to a branch label.
func routeIntent(s State) string {
	if s.Route == RouteUnset {
		return string(RouteWeb)
	}
	return string(s.Route)
}

// retrieve runs the document-retrieval branch.
func (w *Workflow) retrieve(ctx context.Context, s State) graph.NodeResult[State] {
	text := w.retrieveText(ctx, s)
	return graph.NodeResult[State]{Delta: State{RetrievalOutput: &text}}
}

// webSearch runs the web-search branch.
func (w *Workflow) webSearch(ctx context.Context, s State) graph.NodeResult[State] {
	text := w.webText(ctx, s)
	return graph.NodeResult[State]{Delta: State{WebOutput: &text}}
}

// mixedSearch runs both branches together and joins before returning.
func (w *Workflow) mixedSearch(ctx context.Context, s State) graph.NodeResult[State] {
	var wg sync.WaitGroup
	var docs, web string
	wg.Add(2)
	go func() {
		defer wg.Done()
		docs = w.retrieveText(ctx, s)
	}()
	go func() {
		defer wg.Done()
		web = w.webText(ctx, s)
	}()
	wg.Wait()
	return graph.NodeResult[State]{Delta: State{RetrievalOutput: &docs, WebOutput: &web}}
}

// retrieveText searches indexed documents. Provider failure degrades to a
// fallback placeholder; the branch never fails the run.
func (w *Workflow) retrieveText(ctx context.Context, s State) string {
	results, err := w.Retriever.Search(ctx, s.Query, retrievalLimit)
	if err != nil {
		w.logger().Warn("retrieval failed", "session", s.SessionID, "error", err)
		return noDocumentsFallback
	}
	if len(results) == 0 {
		return noDocumentsFallback
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s", r.SourceLabel, r.Text)
	}
	return b.String()
}

// webText searches the web under the same graceful-failure contract.
func (w *Workflow) webText(ctx context.Context, s State) string {
	text, err := w.Web.Search(ctx, s.Query)
	if err != nil {
		w.logger().Warn("web search failed", "session", s.SessionID, "error", err)
		return noWebFallback
	}
	if text == "" {
		return noWebFallback
	}
	return text
}

// respond generates the final answer. When the model requests a registered
// tool, the run interrupts for approval; on resume the decision arrives via
// graph.ResumeDecision and the original request via graph.ResumedInterrupt.
// Generation failure is run-fatal.
func (w *Workflow) respond(ctx context.Context, s State) graph.NodeResult[State] {
	messages := w.answerMessages(s)

	if approved, ok := graph.ResumeDecision(ctx); ok {
		return w.respondResumed(ctx, s, messages, approved)
	}

	var specs []model.ToolSpec
	if w.Tools != nil {
		specs = w.ToolSpecs
	}
	out, err := w.chatAnswer(ctx, messages, specs)
	if err != nil {
		return graph.NodeResult[State]{Err: fmt.Errorf("answer generation: %w", err)}
	}

	if w.Tools != nil && len(out.ToolCalls) > 0 {
		tc := out.ToolCalls[0]
		return graph.NodeResult[State]{Interrupt: &graph.Interrupt{Value: map[string]any{
			"action": tc.Name,
			"input":  tc.Input,
		}}}
	}

	return graph.NodeResult[State]{Delta: State{FinalAnswer: out.Text}}
}

// respondResumed finishes a run that paused on a tool approval. Approval
// executes the tool and folds its output into a second completion;
// rejection completes with the tool skipped. Tool failure is folded in as
// text rather than failing the run.
func (w *Workflow) respondResumed(ctx context.Context, s State, messages []model.Message, approved bool) graph.NodeResult[State] {
	intr, ok := graph.ResumedInterrupt(ctx)
	if !ok || intr == nil {
		return graph.NodeResult[State]{Err: errors.New("resumed without an interrupt payload")}
	}
	action, _ := intr.Value["action"].(string)
	input, _ := intr.Value["input"].(map[string]any)

	if !approved {
		messages = append(messages, model.Message{
			Role:    model.RoleSystem,
			Content: fmt.Sprintf("The user declined the %s tool call. Answer without it.", action),
		})
		out, err := w.chatAnswer(ctx, messages, nil)
		if err != nil {
			return graph.NodeResult[State]{Err: fmt.Errorf("answer generation: %w", err)}
		}
		return graph.NodeResult[State]{Delta: State{FinalAnswer: out.Text}}
	}

	result, err := w.Tools.Call(ctx, action, input)
	observation := fmt.Sprintf("%v", result)
	if err != nil {
		w.logger().Warn("tool call failed", "session", s.SessionID, "tool", action, "error", err)
		observation = "tool error: " + err.Error()
	}
	messages = append(messages, model.Message{
		Role:    model.RoleSystem,
		Content: fmt.Sprintf("The %s tool was approved and returned: %s\nUse this result in your answer.", action, observation),
	})
	out, err := w.chatAnswer(ctx, messages, nil)
	if err != nil {
		return graph.NodeResult[State]{Err: fmt.Errorf("answer generation: %w", err)}
	}
	return graph.NodeResult[State]{Delta: State{FinalAnswer: out.Text}}
}

// chatAnswer issues the generation call, streaming tokens when the model
// can and a sink is attached to the run. Only this stage streams; title,
// intent, and summary calls never do.
func (w *Workflow) chatAnswer(ctx context.Context, messages []model.Message, specs []model.ToolSpec) (model.ChatOut, error) {
	sink := tokenSinkFrom(ctx)
	if sm, ok := w.Model.(model.StreamingChatModel); ok && sink != nil {
		return sm.ChatStream(ctx, messages, specs, sink)
	}
	return w.Model.Chat(ctx, messages, specs)
}

// answerMessages builds the generation prompt: system instructions, memory
// and branch context, the windowed history, then the query.
func (w *Workflow) answerMessages(s State) []model.Message {
	messages := []model.Message{{Role: model.RoleSystem, Content: answerSystemPrompt}}
	if ctxText := answerContext(s); ctxText != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: ctxText})
	}
	for _, t := range s.History {
		messages = append(messages,
			model.Message{Role: model.RoleUser, Content: t.User},
			model.Message{Role: model.RoleAssistant, Content: t.Agent},
		)
	}
	return append(messages, model.Message{Role: model.RoleUser, Content: s.Query})
}

// summarize is the persistence stage: it appends the completed turn to
// durable storage, rewrites the rolling summary, and truncates the in-state
// history window. The summary prompt sees the pre-truncation window. Any
// failure here is run-fatal.
func (w *Workflow) summarize(ctx context.Context, s State) graph.NodeResult[State] {
	window := make([]Turn, 0, len(s.History)+1)
	window = append(window, s.History...)
	window = append(window, Turn{User: s.Query, Agent: s.FinalAnswer})

	out, err := w.liteModel().Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: summarySystemPrompt},
		{Role: model.RoleUser, Content: summaryPrompt(s.Summary, window)},
	}, nil)
	if err != nil {
		return graph.NodeResult[State]{Err: fmt.Errorf("summary generation: %w", err)}
	}
	summary := strings.TrimSpace(out.Text)

	turn := storage.Turn{
		ID:        uuid.NewString(),
		SessionID: s.SessionID,
		User:      s.Query,
		Agent:     s.FinalAnswer,
	}
	if err := w.Turns.Append(ctx, turn); err != nil {
		return graph.NodeResult[State]{Err: fmt.Errorf("persist turn: %w", err)}
	}
	if err := w.Summaries.Upsert(ctx, s.SessionID, summary); err != nil {
		return graph.NodeResult[State]{Err: fmt.Errorf("persist summary: %w", err)}
	}

	if len(window) > HistoryWindow {
		window = window[len(window)-HistoryWindow:]
	}
	return graph.NodeResult[State]{Delta: State{History: window, Summary: summary}}
}
