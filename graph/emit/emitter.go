package emit

// Emitter receives observability events from workflow execution.
//
// Implementations should be non-blocking, safe for concurrent use, and
// resilient: a failing observability backend must never crash a workflow.
// Emit should not panic; internal errors are logged, not returned.
type Emitter interface {
	Emit(event Event)
}
