package graph

import (
	"encoding/json"
	"fmt"
)

// deepCopy creates a deep copy of state S using JSON round-trip
// serialization, so concurrent nodes in a wave each see a private snapshot.
//
// Works for any JSON-serializable type. Unexported fields are dropped and
// circular references are not supported; state types should be plain data.
func deepCopy[S any](state S) (S, error) {
	var zero S

	data, err := json.Marshal(state)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal state: %w", err)
	}

	var copied S
	if err := json.Unmarshal(data, &copied); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return copied, nil
}
