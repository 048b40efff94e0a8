package chat

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dshills/convograph/graph"
)

// streamBuffer decouples the engine from a slow consumer without letting
// events pile up unboundedly.
const streamBuffer = 64

// Request identifies one conversational turn. ThreadID keys the checkpoint
// and the stop flag; it defaults to SessionID, which gives every session a
// single resumable thread.
type Request struct {
	UserID    string
	SessionID string
	Query     string
	ThreadID  string
}

func (r Request) threadID() string {
	if r.ThreadID != "" {
		return r.ThreadID
	}
	return r.SessionID
}

// Runner executes the conversational workflow and exposes the whole-run,
// streaming, resume, and stop surfaces. It is safe for concurrent use
// across sessions; turns within one thread must be serialized by the
// caller.
type Runner struct {
	wf  *Workflow
	eng *graph.Engine[State]

	// stop flags, keyed by thread ID. Each is a "stop requested" bool
	// that resets at the start of the next stream for that thread.
	stops sync.Map
}

// NewRunner compiles the workflow graph and wraps it in an engine built
// with the given options (checkpoint store, emitter, metrics, timeouts).
func NewRunner(wf *Workflow, opts ...graph.Option) (*Runner, error) {
	g, err := wf.BuildGraph()
	if err != nil {
		return nil, err
	}
	eng, err := graph.New(g, opts...)
	if err != nil {
		return nil, err
	}
	return &Runner{wf: wf, eng: eng}, nil
}

// Run executes one whole turn synchronously. The returned result carries
// the terminal status and the full run state; an interrupted run reports
// the pending decision in the result.
func (r *Runner) Run(ctx context.Context, req Request) (graph.RunResult[State], error) {
	return r.eng.Run(ctx, req.threadID(), r.initial(req))
}

// Resume continues an interrupted run with the caller's decision and
// blocks until the run reaches a terminal status again.
func (r *Runner) Resume(ctx context.Context, threadID string, approved bool) (graph.RunResult[State], error) {
	return r.eng.Resume(ctx, threadID, approved)
}

// Stream executes one turn and delivers events as they happen: tokens from
// answer generation, a state update per completed stage, then a single
// interrupt, done, or error terminator. The channel closes after the
// terminator.
func (r *Runner) Stream(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event, streamBuffer)
	go func() {
		defer close(events)
		r.streamRun(ctx, req.threadID(), events, func(runCtx context.Context) (graph.RunResult[State], error) {
			return r.eng.Run(runCtx, req.threadID(), r.initial(req))
		})
	}()
	return events
}

// ResumeStream continues an interrupted run, streaming like Stream.
func (r *Runner) ResumeStream(ctx context.Context, threadID string, approved bool) <-chan Event {
	events := make(chan Event, streamBuffer)
	go func() {
		defer close(events)
		r.streamRun(ctx, threadID, events, func(runCtx context.Context) (graph.RunResult[State], error) {
			return r.eng.Resume(runCtx, threadID, approved)
		})
	}()
	return events
}

// RequestStop asks the thread's active stream to stop at its next poll
// point. Output already emitted stays; no further tokens follow. A stop
// with no active stream is absorbed by the reset at the next stream start.
func (r *Runner) RequestStop(threadID string) {
	r.stopFlag(threadID).Store(true)
}

func (r *Runner) initial(req Request) State {
	return State{UserID: req.UserID, SessionID: req.SessionID, Query: req.Query}
}

func (r *Runner) stopFlag(threadID string) *atomic.Bool {
	flag, _ := r.stops.LoadOrStore(threadID, &atomic.Bool{})
	return flag.(*atomic.Bool)
}

// streamRun drives one engine invocation, bridging its progress into the
// event channel. The stop flag is polled on every token and every stage
// completion; once observed, the run context is cancelled and only the
// done terminator follows.
func (r *Runner) streamRun(ctx context.Context, threadID string, events chan<- Event, run func(context.Context) (graph.RunResult[State], error)) {
	stop := r.stopFlag(threadID)
	stop.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runCtx = withTokenSink(runCtx, func(token string) {
		if stop.Load() {
			cancel()
			return
		}
		r.send(ctx, events, Event{Type: EventToken, Token: token})
	})
	runCtx = graph.WithNodeObserver(runCtx, func(nodeID string) {
		if stop.Load() {
			cancel()
			return
		}
		r.send(ctx, events, Event{Type: EventStateUpdate, Node: nodeID})
	})

	res, err := run(runCtx)

	if stop.Load() {
		r.send(ctx, events, Event{Type: EventDone})
		return
	}
	if err != nil {
		r.send(ctx, events, Event{Type: EventError, Err: err})
		return
	}
	if res.Status == graph.StatusInterrupted {
		r.send(ctx, events, Event{
			Type:      EventInterrupt,
			Node:      res.InterruptNode,
			Interrupt: res.Interrupt.Value,
		})
	}
	r.send(ctx, events, Event{Type: EventDone})
}

// send delivers an event unless the consumer has walked away.
func (r *Runner) send(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
