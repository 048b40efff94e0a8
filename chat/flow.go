package chat

import "github.com/dshills/convograph/graph"

// BuildGraph compiles the conversational workflow topology:
//
//	Start ─┬─ memory_import ── intent ─┐
//	       └─ title ───────────────────┴─ converge (barrier)
//	converge ──(route)──> retrieve | web_search | mixed_search
//	                         └──────────┴──────────┘
//	                              respond ── summarize ── End
//
// Memory import and title generation run concurrently; the converge
// barrier joins them (title directly, memory import through intent) before
// the routing decision reads the classified intent.
func (w *Workflow) BuildGraph() (*graph.Graph[State], error) {
	if err := w.validate(); err != nil {
		return nil, err
	}

	b := graph.NewBuilder(Merge)
	b.AddNode(NodeMemoryImport, graph.NodeFunc[State](w.memoryImport))
	b.AddNode(NodeTitle, graph.NodeFunc[State](w.title))
	b.AddNode(NodeIntent, graph.NodeFunc[State](w.intent))
	b.AddBarrier(NodeConverge, graph.NodeFunc[State](w.converge))
	b.AddNode(NodeRetrieve, graph.NodeFunc[State](w.retrieve))
	b.AddNode(NodeWebSearch, graph.NodeFunc[State](w.webSearch))
	b.AddNode(NodeMixedSearch, graph.NodeFunc[State](w.mixedSearch))
	b.AddNode(NodeRespond, graph.NodeFunc[State](w.respond))
	b.AddNode(NodeSummarize, graph.NodeFunc[State](w.summarize))

	b.AddEdge(graph.Start, NodeMemoryImport)
	b.AddEdge(graph.Start, NodeTitle)
	b.AddEdge(NodeMemoryImport, NodeIntent)
	b.AddEdge(NodeIntent, NodeConverge)
	b.AddEdge(NodeTitle, NodeConverge)
	b.AddConditionalEdges(NodeConverge, routeIntent, map[string]string{
		string(RouteRetrieval): NodeRetrieve,
		string(RouteWeb):       NodeWebSearch,
		string(RouteBoth):      NodeMixedSearch,
	})
	b.AddEdge(NodeRetrieve, NodeRespond)
	b.AddEdge(NodeWebSearch, NodeRespond)
	b.AddEdge(NodeMixedSearch, NodeRespond)
	b.AddEdge(NodeRespond, NodeSummarize)
	b.AddEdge(NodeSummarize, graph.End)

	return b.Compile()
}
