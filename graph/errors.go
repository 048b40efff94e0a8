package graph

import "errors"

// ErrInvalidRetryPolicy indicates a RetryPolicy with impossible settings,
// such as MaxAttempts < 1 or MaxDelay below BaseDelay.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy configuration")

// EngineError represents an error from Engine or Builder operations.
//
// Codes in use:
//
//	INVALID_NODE, DUPLICATE_NODE, NODE_NOT_FOUND, INVALID_EDGE,
//	AMBIGUOUS_ROUTING, UNJOINED_ROUTER, UNREACHABLE_NODE, NO_TERMINATION,
//	NO_START_EDGE, EMPTY_GRAPH, MISSING_REDUCER, MISSING_GRAPH,
//	MISSING_STORE, MISSING_LOGGER, INVALID_THREAD, MAX_WAVES_EXCEEDED,
//	NO_ROUTE, NODE_TIMEOUT, STATE_COPY_FAILED, NO_INTERRUPT,
//	CHECKPOINT_LOAD_FAILED, CHECKPOINT_SAVE_FAILED, CHECKPOINT_CORRUPT
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
