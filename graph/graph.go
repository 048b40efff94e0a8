// Package graph provides a compiled workflow graph and its execution engine.
package graph

import (
	"fmt"
	"sort"
)

// Reserved node identifiers marking the entry and exit of every graph.
const (
	Start = "__start__"
	End   = "__end__"
)

// Reducer merges a partial state update into the previous state.
// Reducers must be deterministic and side-effect free: the engine applies
// deltas from concurrent nodes in a stable order, and the same reducer is
// used to fold a checkpointed state into a new run's initial state.
type Reducer[S any] func(prev, delta S) S

// Router selects an outgoing label for a node with conditional edges.
// Routers must be pure functions of the state. The returned label is looked
// up in the target map declared with AddConditionalEdges.
type Router[S any] func(state S) string

type edge struct {
	From string
	To   string
}

type conditional[S any] struct {
	router  Router[S]
	targets map[string]string
}

// Builder accumulates nodes and edges and compiles them into a Graph.
//
// Example:
//
//	b := graph.NewBuilder(mergeState)
//	b.AddNode("classify", classifyNode)
//	b.AddNode("answer", answerNode)
//	b.AddEdge(graph.Start, "classify")
//	b.AddConditionalEdges("classify", route, map[string]string{
//	    "simple":  "answer",
//	    "complex": "answer",
//	})
//	b.AddEdge("answer", graph.End)
//	g, err := b.Compile()
type Builder[S any] struct {
	reducer      Reducer[S]
	nodes        map[string]Node[S]
	barriers     map[string]bool
	policies     map[string]*NodePolicy
	edges        []edge
	conditionals map[string]conditional[S]
	err          error
}

// NewBuilder creates a Builder with the given reducer.
func NewBuilder[S any](reducer Reducer[S]) *Builder[S] {
	return &Builder[S]{
		reducer:      reducer,
		nodes:        make(map[string]Node[S]),
		barriers:     make(map[string]bool),
		policies:     make(map[string]*NodePolicy),
		conditionals: make(map[string]conditional[S]),
	}
}

// fail records the first construction error. Compile reports it so callers
// can chain Add calls without checking each one.
func (b *Builder[S]) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}

// AddNode registers a node in the workflow graph.
// Node IDs must be unique and cannot be the reserved Start or End markers.
func (b *Builder[S]) AddNode(id string, node Node[S]) error {
	if id == "" {
		return b.fail(&EngineError{Message: "node ID cannot be empty", Code: "INVALID_NODE"})
	}
	if id == Start || id == End {
		return b.fail(&EngineError{Message: "node ID is reserved: " + id, Code: "INVALID_NODE"})
	}
	if node == nil {
		return b.fail(&EngineError{Message: "node cannot be nil: " + id, Code: "INVALID_NODE"})
	}
	if _, exists := b.nodes[id]; exists {
		return b.fail(&EngineError{Message: "duplicate node ID: " + id, Code: "DUPLICATE_NODE"})
	}
	b.nodes[id] = node
	return nil
}

// AddBarrier registers a node that only fires once every one of its inbound
// edges has fired. Use barriers to join concurrent branches before a step
// that needs all of their results.
func (b *Builder[S]) AddBarrier(id string, node Node[S]) error {
	if err := b.AddNode(id, node); err != nil {
		return err
	}
	b.barriers[id] = true
	return nil
}

// SetPolicy attaches an execution policy (timeout, retry) to a node.
func (b *Builder[S]) SetPolicy(id string, policy NodePolicy) error {
	if _, exists := b.nodes[id]; !exists {
		return b.fail(&EngineError{Message: "policy for unknown node: " + id, Code: "NODE_NOT_FOUND"})
	}
	if policy.RetryPolicy != nil {
		if err := policy.RetryPolicy.Validate(); err != nil {
			return b.fail(err)
		}
	}
	b.policies[id] = &policy
	return nil
}

// AddEdge declares a static edge between two nodes. Start and End are valid
// endpoints. Endpoint existence is checked at Compile time so edges may be
// declared before their nodes.
func (b *Builder[S]) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return b.fail(&EngineError{Message: "edge endpoints cannot be empty", Code: "INVALID_EDGE"})
	}
	if to == Start {
		return b.fail(&EngineError{Message: "edge cannot target the start marker", Code: "INVALID_EDGE"})
	}
	if from == End {
		return b.fail(&EngineError{Message: "edge cannot originate from the end marker", Code: "INVALID_EDGE"})
	}
	b.edges = append(b.edges, edge{From: from, To: to})
	return nil
}

// AddConditionalEdges declares router-based routing out of a node.
// Exactly one target fires per run, selected by the label the router
// returns. A node has either static out-edges or a conditional router,
// never both.
func (b *Builder[S]) AddConditionalEdges(from string, router Router[S], targets map[string]string) error {
	if from == "" || from == Start || from == End {
		return b.fail(&EngineError{Message: "invalid conditional source: " + from, Code: "INVALID_EDGE"})
	}
	if router == nil {
		return b.fail(&EngineError{Message: "conditional router cannot be nil", Code: "INVALID_EDGE"})
	}
	if len(targets) == 0 {
		return b.fail(&EngineError{Message: "conditional edges need at least one target", Code: "INVALID_EDGE"})
	}
	if _, exists := b.conditionals[from]; exists {
		return b.fail(&EngineError{Message: "duplicate conditional edges from node: " + from, Code: "INVALID_EDGE"})
	}
	copied := make(map[string]string, len(targets))
	for label, to := range targets {
		copied[label] = to
	}
	b.conditionals[from] = conditional[S]{router: router, targets: copied}
	return nil
}

// Graph is a compiled, validated workflow topology. It is immutable and
// safe to share across engines and goroutines.
type Graph[S any] struct {
	reducer      Reducer[S]
	nodes        map[string]Node[S]
	barriers     map[string]bool
	policies     map[string]*NodePolicy
	succ         map[string][]string
	indegree     map[string]int
	conditionals map[string]conditional[S]
}

// Compile validates the accumulated topology and produces a Graph.
//
// Validation rules:
//   - every edge endpoint refers to a declared node, Start, or End
//   - at least one edge leaves Start
//   - every node is reachable from Start
//   - every node has a path to End
//   - a node has either static out-edges or conditional routing, not both
//   - conditional targets refer to declared nodes or End, and never to a
//     barrier (a barrier fed by an edge that may not fire would deadlock)
//   - a conditional source with more than one inbound edge must be a
//     barrier, so routing always sees the fully joined state
func (b *Builder[S]) Compile() (*Graph[S], error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.reducer == nil {
		return nil, &EngineError{Message: "reducer is required", Code: "MISSING_REDUCER"}
	}
	if len(b.nodes) == 0 {
		return nil, &EngineError{Message: "graph has no nodes", Code: "EMPTY_GRAPH"}
	}

	succ := make(map[string][]string)
	indegree := make(map[string]int)

	for _, e := range b.edges {
		if e.From != Start {
			if _, ok := b.nodes[e.From]; !ok {
				return nil, &EngineError{Message: "edge from unknown node: " + e.From, Code: "NODE_NOT_FOUND"}
			}
		}
		if e.To != End {
			if _, ok := b.nodes[e.To]; !ok {
				return nil, &EngineError{Message: "edge to unknown node: " + e.To, Code: "NODE_NOT_FOUND"}
			}
			indegree[e.To]++
		}
		succ[e.From] = append(succ[e.From], e.To)
	}
	if len(succ[Start]) == 0 {
		return nil, &EngineError{Message: "no edge from the start marker", Code: "NO_START_EDGE"}
	}

	for from, cond := range b.conditionals {
		if _, ok := b.nodes[from]; !ok {
			return nil, &EngineError{Message: "conditional edges from unknown node: " + from, Code: "NODE_NOT_FOUND"}
		}
		if len(succ[from]) > 0 {
			return nil, &EngineError{
				Message: "node has both static and conditional out-edges: " + from,
				Code:    "AMBIGUOUS_ROUTING",
			}
		}
		for label, to := range cond.targets {
			if to == End {
				continue
			}
			if _, ok := b.nodes[to]; !ok {
				return nil, &EngineError{
					Message: fmt.Sprintf("conditional target %q -> unknown node %q from %s", label, to, from),
					Code:    "NODE_NOT_FOUND",
				}
			}
			if b.barriers[to] {
				return nil, &EngineError{
					Message: fmt.Sprintf("conditional target %q may not be a barrier (from %s)", to, from),
					Code:    "INVALID_EDGE",
				}
			}
		}
		if indegree[from] > 1 && !b.barriers[from] {
			return nil, &EngineError{
				Message: "conditional source with multiple inbound edges must be a barrier: " + from,
				Code:    "UNJOINED_ROUTER",
			}
		}
	}

	// Stable successor order keeps merge order deterministic.
	for from := range succ {
		sort.Strings(succ[from])
	}

	if err := b.checkReachability(succ); err != nil {
		return nil, err
	}
	if err := b.checkTermination(succ); err != nil {
		return nil, err
	}

	return &Graph[S]{
		reducer:      b.reducer,
		nodes:        b.nodes,
		barriers:     b.barriers,
		policies:     b.policies,
		succ:         succ,
		indegree:     indegree,
		conditionals: b.conditionals,
	}, nil
}

// checkReachability verifies every declared node is reachable from Start
// through static or conditional edges.
func (b *Builder[S]) checkReachability(succ map[string][]string) error {
	visited := map[string]bool{Start: true}
	queue := []string{Start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, to := range b.outTargets(cur, succ) {
			if to == End || visited[to] {
				continue
			}
			visited[to] = true
			queue = append(queue, to)
		}
	}
	for id := range b.nodes {
		if !visited[id] {
			return &EngineError{Message: "node unreachable from start: " + id, Code: "UNREACHABLE_NODE"}
		}
	}
	return nil
}

// checkTermination verifies every node has at least one path to End.
func (b *Builder[S]) checkTermination(succ map[string][]string) error {
	// Reverse reachability from End.
	rev := make(map[string][]string)
	for from := range b.nodes {
		for _, to := range b.outTargets(from, succ) {
			rev[to] = append(rev[to], from)
		}
	}
	for _, to := range succ[Start] {
		rev[to] = append(rev[to], Start)
	}
	reaches := map[string]bool{}
	queue := []string{End}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, from := range rev[cur] {
			if reaches[from] || from == Start {
				continue
			}
			reaches[from] = true
			queue = append(queue, from)
		}
	}
	for id := range b.nodes {
		if !reaches[id] {
			return &EngineError{Message: "node has no path to end: " + id, Code: "NO_TERMINATION"}
		}
	}
	return nil
}

// outTargets lists all possible targets out of a node, static or conditional.
func (b *Builder[S]) outTargets(id string, succ map[string][]string) []string {
	if cond, ok := b.conditionals[id]; ok {
		targets := make([]string, 0, len(cond.targets))
		for _, to := range cond.targets {
			targets = append(targets, to)
		}
		sort.Strings(targets)
		return targets
	}
	return succ[id]
}

// Policy returns the execution policy attached to a node, or nil.
func (g *Graph[S]) Policy(id string) *NodePolicy {
	return g.policies[id]
}

// IsBarrier reports whether the node joins all of its inbound edges before
// firing.
func (g *Graph[S]) IsBarrier(id string) bool {
	return g.barriers[id]
}
