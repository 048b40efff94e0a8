package graph

import "context"

type resumeDecisionKey struct{}

// withResumeDecision records the caller's approve/reject decision for the
// node being re-entered by Resume.
func withResumeDecision(ctx context.Context, approved bool) context.Context {
	return context.WithValue(ctx, resumeDecisionKey{}, approved)
}

// ResumeDecision reports the caller's decision when a run is re-entered via
// Resume. ok is false during a normal (non-resumed) execution, which is how
// a node distinguishes "ask for approval" from "approval already given".
func ResumeDecision(ctx context.Context) (approved, ok bool) {
	v := ctx.Value(resumeDecisionKey{})
	if v == nil {
		return false, false
	}
	approved, _ = v.(bool)
	return approved, true
}

type resumedInterruptKey struct{}

// withResumedInterrupt makes the interrupt payload that paused the run
// available to the node being re-entered.
func withResumedInterrupt(ctx context.Context, intr *Interrupt) context.Context {
	return context.WithValue(ctx, resumedInterruptKey{}, intr)
}

// ResumedInterrupt returns the interrupt payload the run paused on, so the
// re-entered node can recover what it asked approval for. ok is false
// outside of a Resume.
func ResumedInterrupt(ctx context.Context) (*Interrupt, bool) {
	intr, ok := ctx.Value(resumedInterruptKey{}).(*Interrupt)
	return intr, ok
}

type nodeObserverKey struct{}

// NodeObserver is invoked by the engine after a node's delta has been merged
// into the run state. Observers run on the engine goroutine in stable node
// order; keep them fast and non-blocking.
type NodeObserver func(nodeID string)

// WithNodeObserver attaches a per-run observer to the context. Streaming
// callers use this to surface state-update events without wiring a custom
// emitter per run.
func WithNodeObserver(ctx context.Context, fn NodeObserver) context.Context {
	return context.WithValue(ctx, nodeObserverKey{}, fn)
}

func nodeObserverFrom(ctx context.Context) NodeObserver {
	fn, _ := ctx.Value(nodeObserverKey{}).(NodeObserver)
	return fn
}
