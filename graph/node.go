package graph

import "context"

// Node represents a processing unit in the workflow graph.
// It receives state of type S, performs computation, and returns a NodeResult.
//
// Nodes never decide routing. Control flow is declared on the graph via
// AddEdge and AddConditionalEdges, which keeps node functions pure with
// respect to topology and lets the compiler validate the whole graph up
// front.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Run executes the node's logic with the given context and state.
	// The state is a private deep copy; mutations do not leak to sibling
	// nodes running in the same wave.
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult represents the output of a node execution.
type NodeResult[S any] struct {
	// Delta is the partial state update produced by this node.
	// It is merged with the current state using the graph's reducer.
	Delta S

	// Interrupt, when non-nil, pauses the run before this node completes.
	// The engine persists a checkpoint and surfaces the interrupt payload
	// to the caller. The node is re-executed on Resume with the caller's
	// decision available via ResumeDecision.
	Interrupt *Interrupt

	// Err contains any error that occurred during node execution.
	// A non-nil error fails the run after in-flight siblings have joined.
	Err error
}

// Interrupt carries the payload surfaced to the caller when a node pauses
// the run, typically a description of an action awaiting approval.
type Interrupt struct {
	Value map[string]any `json:"value"`
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	greet := NodeFunc[MyState](func(ctx context.Context, s MyState) NodeResult[MyState] {
//	    return NodeResult[MyState]{Delta: MyState{Greeting: "hello"}}
//	})
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}

// NodeError represents an error that occurred during node execution.
// It provides structured error information for better observability.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the underlying error that caused this NodeError.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
