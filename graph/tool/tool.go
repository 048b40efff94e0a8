// Package tool provides executable tools that language models can invoke.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool is an action a model can request. Implementations validate their
// input, respect context cancellation, and return structured output.
//
// Example:
//
//	type WeatherTool struct{}
//
//	func (w *WeatherTool) Name() string { return "get_weather" }
//
//	func (w *WeatherTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
//	    location, ok := input["location"].(string)
//	    if !ok {
//	        return nil, errors.New("location parameter required")
//	    }
//	    return map[string]any{"location": location, "conditions": "sunny"}, nil
//	}
type Tool interface {
	// Name returns the unique identifier for this tool. It must match the
	// tool name in the ToolSpec presented to the model.
	Name() string

	// Call executes the tool with the provided input. The input structure
	// matches the schema declared in the corresponding ToolSpec.
	Call(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Registry holds tools by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Call invokes the named tool. Unknown tool names are an error.
func (r *Registry) Call(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return t.Call(ctx, input)
}

// Names lists registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
