package graph

import (
	"log/slog"
	"time"

	"github.com/dshills/convograph/graph/checkpoint"
	"github.com/dshills/convograph/graph/emit"
)

// defaultMaxWaves bounds runaway graphs. Each wave runs a whole frontier,
// so even deep workflows stay well under this.
const defaultMaxWaves = 100

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	eng, err := graph.New(g,
//	    graph.WithCheckpointStore(store),
//	    graph.WithMetrics(metrics),
//	    graph.WithDefaultNodeTimeout(30*time.Second),
//	)
type Option func(*engineConfig) error

// engineConfig collects options before they are applied to an Engine.
type engineConfig struct {
	checkpoints    checkpoint.Store
	emitter        emit.Emitter
	metrics        *Metrics
	logger         *slog.Logger
	defaultTimeout time.Duration
	maxWaves       int
}

// WithCheckpointStore sets the checkpoint backend used for warm starts and
// interrupt/resume. Defaults to an in-process store when unset.
func WithCheckpointStore(st checkpoint.Store) Option {
	return func(cfg *engineConfig) error {
		if st == nil {
			return &EngineError{Message: "checkpoint store cannot be nil", Code: "MISSING_STORE"}
		}
		cfg.checkpoints = st
		return nil
	}
}

// WithEmitter sets the observability event receiver. Optional.
func WithEmitter(em emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		cfg.emitter = em
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection for runs, node latency,
// and interrupts.
func WithMetrics(m *Metrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithLogger sets the structured logger used for degradations such as
// checkpoint write failures. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) error {
		if logger == nil {
			return &EngineError{Message: "logger cannot be nil", Code: "MISSING_LOGGER"}
		}
		cfg.logger = logger
		return nil
	}
}

// WithDefaultNodeTimeout sets the maximum execution time for nodes without
// an explicit NodePolicy.Timeout. Zero disables the default timeout.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.defaultTimeout = d
		return nil
	}
}

// WithMaxWaves limits the number of scheduler waves per run. Zero disables
// the limit; use with caution on cyclic graphs.
func WithMaxWaves(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.maxWaves = n
		return nil
	}
}
