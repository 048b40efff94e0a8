// Package chat implements the conversational workflow: run state, node
// functions, graph topology, and the streaming runner.
package chat

// Memory window bounds.
const (
	// HistoryWindow is the maximum number of turns kept in the run state
	// after a run persists.
	HistoryWindow = 10

	// RecentTurns is how many turns a cold load reads from durable storage.
	RecentTurns = 3
)

// Route is the intent classification outcome. It decides which context
// branches run before answer generation.
type Route string

const (
	// RouteUnset means intent has not been classified yet.
	RouteUnset Route = ""
	// RouteRetrieval runs only the document-retrieval branch.
	RouteRetrieval Route = "retrieval"
	// RouteWeb runs only the web-search branch.
	RouteWeb Route = "web"
	// RouteBoth runs retrieval and web search together.
	RouteBoth Route = "both"
)

// UsesRetrieval reports whether the route includes document retrieval.
func (r Route) UsesRetrieval() bool { return r == RouteRetrieval || r == RouteBoth }

// UsesWeb reports whether the route includes web search.
func (r Route) UsesWeb() bool { return r == RouteWeb || r == RouteBoth }

// Turn is one user/assistant exchange.
type Turn struct {
	User  string `json:"user"`
	Agent string `json:"agent"`
}

// State is the run state threaded through the workflow graph. Fields are
// populated incrementally by nodes and folded together by Merge.
//
// The branch outputs are pointers so "branch did not run" stays
// distinguishable from "branch ran and found nothing".
type State struct {
	// Immutable inputs for the run.
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Query     string `json:"query"`

	// Conversation memory, loaded cold or carried warm.
	History []Turn `json:"history,omitempty"`
	Summary string `json:"summary,omitempty"`

	// Title is set once per session and never overwritten.
	Title string `json:"title,omitempty"`

	// Route is the intent classification outcome.
	Route Route `json:"route,omitempty"`

	// Branch outputs, present only when the branch executed.
	RetrievalOutput *string `json:"retrieval_output,omitempty"`
	WebOutput       *string `json:"web_output,omitempty"`

	// FinalAnswer is the terminal output of the run.
	FinalAnswer string `json:"final_answer,omitempty"`
}

// Merge folds a node's delta into the previous state. It is the reducer for
// the workflow graph and is also used to fold a checkpointed state into the
// next run's inputs.
//
// Rules:
//   - scalar fields replace when the delta value is non-empty
//   - Title is write-once: a delta title is ignored once a title exists
//   - History replaces wholesale when the delta carries any turns
//   - branch outputs replace when the delta pointer is non-nil
//   - a delta carrying a Query starts a new turn: nodes never set Query, so
//     it can only come from run-start input, and the per-run fields (route,
//     branch outputs, final answer) reset while memory carries over
func Merge(prev, delta State) State {
	out := prev
	if delta.UserID != "" {
		out.UserID = delta.UserID
	}
	if delta.SessionID != "" {
		out.SessionID = delta.SessionID
	}
	if delta.Query != "" {
		out.Query = delta.Query
		out.Route = RouteUnset
		out.RetrievalOutput = nil
		out.WebOutput = nil
		out.FinalAnswer = ""
	}
	if len(delta.History) > 0 {
		out.History = delta.History
	}
	if delta.Summary != "" {
		out.Summary = delta.Summary
	}
	if out.Title == "" && delta.Title != "" {
		out.Title = delta.Title
	}
	if delta.Route != RouteUnset {
		out.Route = delta.Route
	}
	if delta.RetrievalOutput != nil {
		out.RetrievalOutput = delta.RetrievalOutput
	}
	if delta.WebOutput != nil {
		out.WebOutput = delta.WebOutput
	}
	if delta.FinalAnswer != "" {
		out.FinalAnswer = delta.FinalAnswer
	}
	return out
}
