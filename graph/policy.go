package graph

import (
	"math/rand"
	"time"
)

// NodePolicy configures the execution behavior for a specific node.
// Policies are attached via Builder.SetPolicy and enforced by the engine.
type NodePolicy struct {
	// Timeout is the maximum execution time allowed for this node.
	// If zero, the engine's default node timeout is used.
	Timeout time.Duration

	// RetryPolicy specifies automatic retry behavior for transient failures.
	// If nil, no retries are attempted.
	RetryPolicy *RetryPolicy
}

// RetryPolicy defines automatic retry configuration for transient node
// failures. Exponential backoff with jitter is used between attempts to
// avoid synchronized retry storms.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of execution attempts, including
	// the initial attempt. Must be >= 1; 1 means no retries.
	MaxAttempts int

	// BaseDelay is the base delay for exponential backoff between retries.
	// The actual delay is min(BaseDelay * 2^attempt, MaxDelay) + jitter.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff. Must be >= BaseDelay when set.
	MaxDelay time.Duration

	// Retryable decides whether an error is worth retrying.
	// If nil, all errors are considered non-retryable.
	Retryable func(error) bool
}

// computeBackoff calculates the delay before retrying a failed node.
//
//	delay = min(base * 2^attempt, maxDelay) + jitter(0, base)
func computeBackoff(attempt int, base, maxDelay time.Duration, rng *rand.Rand) time.Duration {
	if base <= 0 {
		return 0
	}

	exponentialDelay := base * (1 << attempt)
	if maxDelay > 0 && exponentialDelay > maxDelay {
		exponentialDelay = maxDelay
	}

	var jitter time.Duration
	if rng != nil {
		jitter = time.Duration(rng.Int63n(int64(base)))
	} else {
		jitter = time.Duration(rand.Int63n(int64(base))) // #nosec G404 -- jitter for retry timing, not security
	}

	return exponentialDelay + jitter
}

// Validate checks if the RetryPolicy configuration is valid.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if rp.MaxDelay > 0 && rp.BaseDelay > 0 && rp.MaxDelay < rp.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}
