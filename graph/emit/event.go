// Package emit provides pluggable observability for workflow execution.
package emit

// Event is an observability event emitted during workflow execution:
// node completions, interrupts, run termination, checkpoint operations.
type Event struct {
	// Thread identifies the workflow thread that emitted this event.
	Thread string

	// Wave is the scheduler wave number (1-indexed).
	// Zero for thread-level events.
	Wave int

	// Node identifies which node the event concerns.
	// Empty for thread-level events.
	Node string

	// Msg is a human-readable description of the event.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys: "error", "interrupt", "duration_ms".
	Meta map[string]any
}
