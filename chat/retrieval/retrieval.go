// Package retrieval defines the document-retrieval and web-search provider
// interfaces consumed by the workflow, with HTTP clients and mocks.
package retrieval

import "context"

// Result is one ranked hit from the retrieval provider.
type Result struct {
	SourceID    string `json:"source_id"`
	SourceLabel string `json:"source_label"`
	Text        string `json:"text"`
}

// Retriever searches the user's indexed documents. Implementations return
// an empty slice, not an error, when nothing matches.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// WebSearcher searches the web and returns a free-text digest. The same
// graceful-empty contract applies: no results means an empty string.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}
