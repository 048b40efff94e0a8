package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dshills/convograph/graph/checkpoint"
	"github.com/dshills/convograph/graph/emit"
)

// RunStatus describes the lifecycle of a workflow run.
type RunStatus string

const (
	// StatusPending marks a run that has been created but not started.
	StatusPending RunStatus = "pending"
	// StatusRunning marks a run that is executing waves.
	StatusRunning RunStatus = "running"
	// StatusInterrupted marks a run paused by a node awaiting a decision.
	StatusInterrupted RunStatus = "interrupted"
	// StatusCompleted marks a run that reached End.
	StatusCompleted RunStatus = "completed"
	// StatusFailed marks a run terminated by an error or cancellation.
	StatusFailed RunStatus = "failed"
)

// RunResult carries the terminal state of a Run or Resume call.
type RunResult[S any] struct {
	Status RunStatus
	State  S

	// Interrupt and InterruptNode are set when Status is StatusInterrupted.
	Interrupt     *Interrupt
	InterruptNode string
}

// Engine executes a compiled Graph wave by wave.
//
// Each wave runs every ready node concurrently, joins all of them, merges
// their deltas in stable node order, and then routes to the next wave.
// Barriers fire only after all of their inbound edges have fired; every
// other node fires as soon as any inbound edge does.
//
// A checkpoint is written when a run completes or interrupts, keyed by the
// thread ID. A later Run on the same thread starts from the checkpointed
// state folded with the new initial state via the reducer; Resume re-enters
// an interrupted run at the paused node.
type Engine[S any] struct {
	graph          *Graph[S]
	checkpoints    checkpoint.Store
	emitter        emit.Emitter
	metrics        *Metrics
	logger         *slog.Logger
	defaultTimeout time.Duration
	maxWaves       int
}

// New creates an Engine for a compiled graph.
//
// Example:
//
//	eng, err := graph.New(g,
//	    graph.WithCheckpointStore(redisStore),
//	    graph.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	    graph.WithDefaultNodeTimeout(30*time.Second),
//	)
func New[S any](g *Graph[S], opts ...Option) (*Engine[S], error) {
	if g == nil {
		return nil, &EngineError{Message: "graph is required", Code: "MISSING_GRAPH"}
	}

	cfg := engineConfig{
		maxWaves: defaultMaxWaves,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.checkpoints == nil {
		cfg.checkpoints = checkpoint.NewMemoryStore()
	}

	return &Engine[S]{
		graph:          g,
		checkpoints:    cfg.checkpoints,
		emitter:        cfg.emitter,
		metrics:        cfg.metrics,
		logger:         cfg.logger,
		defaultTimeout: cfg.defaultTimeout,
		maxWaves:       cfg.maxWaves,
	}, nil
}

// Run executes the workflow for the given thread.
//
// If a checkpoint exists for the thread, its state is folded with initial
// via the reducer before execution starts, so long-lived fields carry over
// while per-run fields are replaced. A corrupt or missing checkpoint means
// a cold start from initial alone.
func (e *Engine[S]) Run(ctx context.Context, threadID string, initial S) (RunResult[S], error) {
	if threadID == "" {
		return RunResult[S]{Status: StatusFailed}, &EngineError{Message: "thread ID cannot be empty", Code: "INVALID_THREAD"}
	}

	state := initial
	if prior, ok := e.loadState(ctx, threadID); ok {
		state = e.graph.reducer(prior, initial)
	}

	frontier := append([]string(nil), e.graph.succ[Start]...)
	waiting := e.initialWaiting()
	return e.loop(ctx, threadID, state, frontier, waiting)
}

// Resume re-enters an interrupted run with the caller's decision.
// The interrupted node runs again with ResumeDecision(ctx) reporting
// approved, then execution continues to completion as usual.
func (e *Engine[S]) Resume(ctx context.Context, threadID string, approved bool) (RunResult[S], error) {
	snap, ok, err := e.loadSnapshot(ctx, threadID)
	if err != nil {
		return RunResult[S]{Status: StatusFailed}, err
	}
	if !ok || snap.Status != StatusInterrupted || snap.Node == "" {
		return RunResult[S]{Status: StatusFailed}, &EngineError{
			Message: "no interrupted run for thread: " + threadID,
			Code:    "NO_INTERRUPT",
		}
	}

	var state S
	if err := json.Unmarshal(snap.State, &state); err != nil {
		return RunResult[S]{Status: StatusFailed}, &EngineError{
			Message: "checkpointed state is not decodable: " + err.Error(),
			Code:    "CHECKPOINT_CORRUPT",
		}
	}

	waiting := snap.Waiting
	if waiting == nil {
		waiting = make(map[string]int)
	}
	frontier := []string{snap.Node}
	for _, id := range snap.Pending {
		if id != snap.Node {
			frontier = append(frontier, id)
		}
	}

	ctx = withResumeDecision(ctx, approved)
	if snap.Interrupt != nil {
		ctx = withResumedInterrupt(ctx, snap.Interrupt)
	}
	return e.loop(ctx, threadID, state, frontier, waiting)
}

// initialWaiting seeds the remaining inbound-edge counts for every barrier.
func (e *Engine[S]) initialWaiting() map[string]int {
	waiting := make(map[string]int)
	for id := range e.graph.barriers {
		waiting[id] = e.graph.indegree[id]
	}
	return waiting
}

// loop drives the wave scheduler until the frontier drains or the run
// fails or interrupts.
func (e *Engine[S]) loop(ctx context.Context, threadID string, state S, frontier []string, waiting map[string]int) (RunResult[S], error) {
	observer := nodeObserverFrom(ctx)
	wave := 0

	for len(frontier) > 0 {
		wave++
		if e.maxWaves > 0 && wave > e.maxWaves {
			return e.fail(threadID, state, &EngineError{
				Message: fmt.Sprintf("execution exceeded %d waves", e.maxWaves),
				Code:    "MAX_WAVES_EXCEEDED",
			})
		}
		if err := ctx.Err(); err != nil {
			return e.fail(threadID, state, err)
		}

		sort.Strings(frontier)
		results := make([]NodeResult[S], len(frontier))

		if e.metrics != nil {
			e.metrics.SetInflight(len(frontier))
		}

		var wg sync.WaitGroup
		for i, id := range frontier {
			copied, err := deepCopy(state)
			if err != nil {
				return e.fail(threadID, state, &EngineError{
					Message: "state is not copyable: " + err.Error(),
					Code:    "STATE_COPY_FAILED",
				})
			}
			wg.Add(1)
			go func(i int, id string, snapshot S) {
				defer wg.Done()
				results[i] = e.runNode(ctx, threadID, id, snapshot)
			}(i, id, copied)
		}
		wg.Wait()

		if e.metrics != nil {
			e.metrics.SetInflight(0)
		}

		// All siblings have joined; report the first failure in stable order.
		for i, id := range frontier {
			if results[i].Err == nil {
				continue
			}
			e.emit(threadID, wave, id, "node failed", map[string]any{"error": results[i].Err.Error()})
			return e.fail(threadID, state, &NodeError{
				Message: results[i].Err.Error(),
				NodeID:  id,
				Cause:   results[i].Err,
			})
		}

		// Merge deltas in stable order. An interrupting node produced no
		// delta; it re-runs on Resume.
		for i, id := range frontier {
			if results[i].Interrupt != nil {
				continue
			}
			state = e.graph.reducer(state, results[i].Delta)
			e.appendPendingWrite(ctx, threadID, id, results[i].Delta)
			if observer != nil {
				observer(id)
			}
			e.emit(threadID, wave, id, "node completed", nil)
		}

		for i := range frontier {
			if results[i].Interrupt == nil {
				continue
			}
			return e.interrupt(ctx, threadID, wave, state, frontier, i, waiting, results[i].Interrupt)
		}

		next, err := e.routeFrom(frontier, state, waiting)
		if err != nil {
			return e.fail(threadID, state, err)
		}
		frontier = next
	}

	if err := e.saveSnapshot(ctx, threadID, runSnapshot{Status: StatusCompleted}, state); err != nil {
		// The answer exists even if the checkpoint write failed; degrade
		// to a warning rather than failing a finished run.
		e.logger.Warn("checkpoint write failed at completion", "thread", threadID, "error", err)
	}
	if e.metrics != nil {
		e.metrics.RecordRun(StatusCompleted)
	}
	e.emit(threadID, wave, "", "run completed", nil)
	return RunResult[S]{Status: StatusCompleted, State: state}, nil
}

// runNode executes one node with its timeout and retry policy applied.
func (e *Engine[S]) runNode(ctx context.Context, threadID, id string, state S) NodeResult[S] {
	node := e.graph.nodes[id]
	policy := e.graph.policies[id]

	attempts := 1
	var retry *RetryPolicy
	if policy != nil && policy.RetryPolicy != nil {
		retry = policy.RetryPolicy
		attempts = retry.MaxAttempts
	}

	var result NodeResult[S]
	for attempt := 0; attempt < attempts; attempt++ {
		start := time.Now()
		res, timeoutErr := executeNodeWithTimeout(ctx, node, id, state, policy, e.defaultTimeout)
		if timeoutErr != nil {
			res.Err = timeoutErr
		}
		status := "success"
		if res.Err != nil {
			status = "error"
		}
		if e.metrics != nil {
			e.metrics.RecordNodeLatency(id, time.Since(start), status)
		}
		result = res

		if res.Err == nil || retry == nil || retry.Retryable == nil || !retry.Retryable(res.Err) {
			return result
		}
		if attempt == attempts-1 {
			return result
		}
		delay := computeBackoff(attempt, retry.BaseDelay, retry.MaxDelay, nil)
		e.logger.Debug("retrying node", "thread", threadID, "node", id, "attempt", attempt+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result
		}
	}
	return result
}

// routeFrom computes the next frontier from the nodes that just completed.
// Barrier counts are decremented in place; a barrier joins the frontier
// only when its remaining count reaches zero.
func (e *Engine[S]) routeFrom(completed []string, state S, waiting map[string]int) ([]string, error) {
	var next []string
	seen := make(map[string]bool)
	add := func(to string) {
		if to == End {
			return
		}
		if e.graph.barriers[to] {
			waiting[to]--
			if waiting[to] > 0 {
				return
			}
		}
		if !seen[to] {
			seen[to] = true
			next = append(next, to)
		}
	}

	for _, id := range completed {
		if cond, ok := e.graph.conditionals[id]; ok {
			label := cond.router(state)
			to, ok := cond.targets[label]
			if !ok {
				return nil, &EngineError{
					Message: fmt.Sprintf("node %s routed to undeclared label %q", id, label),
					Code:    "NO_ROUTE",
				}
			}
			add(to)
			continue
		}
		for _, to := range e.graph.succ[id] {
			add(to)
		}
	}
	return next, nil
}

// interrupt persists a resumable snapshot and surfaces the interrupt.
// Peers in the same wave already completed, so their routing is folded into
// the snapshot's pending set before the run pauses.
func (e *Engine[S]) interrupt(ctx context.Context, threadID string, wave int, state S, frontier []string, idx int, waiting map[string]int, intr *Interrupt) (RunResult[S], error) {
	peers := make([]string, 0, len(frontier)-1)
	for i, id := range frontier {
		if i != idx {
			peers = append(peers, id)
		}
	}
	pending, err := e.routeFrom(peers, state, waiting)
	if err != nil {
		return e.fail(threadID, state, err)
	}

	node := frontier[idx]
	snap := runSnapshot{
		Status:    StatusInterrupted,
		Node:      node,
		Pending:   pending,
		Waiting:   waiting,
		Interrupt: intr,
	}
	if err := e.saveSnapshot(ctx, threadID, snap, state); err != nil {
		// Without the snapshot the run cannot be resumed, so this one is
		// fatal, unlike the completion write.
		return e.fail(threadID, state, &EngineError{
			Message: "failed to checkpoint interrupted run: " + err.Error(),
			Code:    "CHECKPOINT_SAVE_FAILED",
		})
	}

	if e.metrics != nil {
		e.metrics.IncInterrupts()
		e.metrics.RecordRun(StatusInterrupted)
	}
	e.emit(threadID, wave, node, "run interrupted", map[string]any{"interrupt": intr.Value})
	return RunResult[S]{
		Status:        StatusInterrupted,
		State:         state,
		Interrupt:     intr,
		InterruptNode: node,
	}, nil
}

func (e *Engine[S]) fail(threadID string, state S, err error) (RunResult[S], error) {
	if e.metrics != nil {
		e.metrics.RecordRun(StatusFailed)
	}
	e.emit(threadID, 0, "", "run failed", map[string]any{"error": err.Error()})
	return RunResult[S]{Status: StatusFailed, State: state}, err
}

// runSnapshot is the JSON payload persisted in a checkpoint record.
type runSnapshot struct {
	Status    RunStatus       `json:"status"`
	State     json.RawMessage `json:"state"`
	Node      string          `json:"node,omitempty"`
	Pending   []string        `json:"pending,omitempty"`
	Waiting   map[string]int  `json:"waiting,omitempty"`
	Interrupt *Interrupt      `json:"interrupt,omitempty"`
}

func (e *Engine[S]) saveSnapshot(ctx context.Context, threadID string, snap runSnapshot, state S) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	snap.State = raw

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	rec := checkpoint.Record{
		Payload:  payload,
		Encoding: checkpoint.EncodingJSON,
		Metadata: map[string]any{
			"status": string(snap.Status),
			"node":   snap.Node,
		},
		SavedAt: time.Now().UTC(),
	}
	return e.checkpoints.Put(ctx, threadID, rec)
}

// loadState returns the checkpointed state for a thread, if one exists and
// decodes cleanly. Any failure is treated as a cold start.
func (e *Engine[S]) loadState(ctx context.Context, threadID string) (S, bool) {
	var zero S
	snap, ok, err := e.loadSnapshot(ctx, threadID)
	if err != nil || !ok {
		if err != nil {
			e.logger.Warn("checkpoint load failed, starting cold", "thread", threadID, "error", err)
		}
		return zero, false
	}
	var state S
	if err := json.Unmarshal(snap.State, &state); err != nil {
		e.logger.Warn("checkpoint state undecodable, starting cold", "thread", threadID, "error", err)
		return zero, false
	}
	return state, true
}

func (e *Engine[S]) loadSnapshot(ctx context.Context, threadID string) (runSnapshot, bool, error) {
	rec, ok, err := e.checkpoints.Get(ctx, threadID)
	if err != nil {
		return runSnapshot{}, false, &EngineError{Message: "checkpoint load failed: " + err.Error(), Code: "CHECKPOINT_LOAD_FAILED"}
	}
	if !ok {
		return runSnapshot{}, false, nil
	}
	var snap runSnapshot
	if err := json.Unmarshal(rec.Payload, &snap); err != nil {
		// A payload that does not decode is treated as no checkpoint at
		// all; the store already applied its encoding tag.
		return runSnapshot{}, false, nil
	}
	return snap, true, nil
}

// appendPendingWrite records a node's delta against the thread, best effort.
// These records aid post-mortem inspection of partially merged waves and are
// never read back by the engine itself.
func (e *Engine[S]) appendPendingWrite(ctx context.Context, threadID, nodeID string, delta S) {
	raw, err := json.Marshal(delta)
	if err != nil {
		return
	}
	if err := e.checkpoints.AppendPendingWrite(ctx, threadID, checkpoint.PendingWrite{Node: nodeID, Value: raw}); err != nil {
		e.logger.Debug("pending write dropped", "thread", threadID, "node", nodeID, "error", err)
	}
}

func (e *Engine[S]) emit(threadID string, wave int, nodeID, msg string, meta map[string]any) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(emit.Event{
		Thread: threadID,
		Wave:   wave,
		Node:   nodeID,
		Msg:    msg,
		Meta:   meta,
	})
}
