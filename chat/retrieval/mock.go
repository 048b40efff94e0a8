package retrieval

import (
	"context"
	"sync"
)

// MockRetriever is a test implementation of Retriever.
type MockRetriever struct {
	// Results is returned by every Search call.
	Results []Result

	// Err, if set, is returned instead.
	Err error

	mu      sync.Mutex
	queries []string
}

// Search implements Retriever.
func (m *MockRetriever) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if limit < len(m.Results) {
		return m.Results[:limit], nil
	}
	return m.Results, nil
}

// Queries returns the search queries received so far.
func (m *MockRetriever) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockWebSearcher is a test implementation of WebSearcher.
type MockWebSearcher struct {
	// Text is returned by every Search call.
	Text string

	// Err, if set, is returned instead.
	Err error

	mu      sync.Mutex
	queries []string
}

// Search implements WebSearcher.
func (m *MockWebSearcher) Search(ctx context.Context, query string) (string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// Queries returns the search queries received so far.
func (m *MockWebSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}
