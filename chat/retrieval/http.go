package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// VectorClient implements Retriever against a vector-search HTTP service.
// The service exposes POST {base}/search taking {"query", "limit"} and
// returning {"results": [{"source_id", "source_label", "text"}]}.
type VectorClient struct {
	client *resty.Client
}

// NewVectorClient creates a retriever for the service at baseURL.
func NewVectorClient(baseURL string) *VectorClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30 * time.Second)
	return &VectorClient{client: client}
}

// Search implements Retriever.
func (v *VectorClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	var out struct {
		Results []Result `json:"results"`
	}
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"query": query, "limit": limit}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("vector search: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Results, nil
}

// TavilyClient implements WebSearcher against the Tavily search API.
type TavilyClient struct {
	client *resty.Client
	apiKey string
}

// tavilyResponse is the subset of the Tavily reply the digest uses.
type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewTavilyClient creates a web searcher using the given API key.
func NewTavilyClient(apiKey string) *TavilyClient {
	client := resty.New().
		SetBaseURL("https://api.tavily.com").
		SetTimeout(30 * time.Second)
	return &TavilyClient{client: client, apiKey: apiKey}
}

// Search implements WebSearcher. The reply's answer and top results are
// flattened into a single text digest for prompt construction.
func (t *TavilyClient) Search(ctx context.Context, query string) (string, error) {
	var out tavilyResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"api_key":        t.apiKey,
			"query":          query,
			"include_answer": true,
			"max_results":    5,
		}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("web search: status %d: %s", resp.StatusCode(), resp.String())
	}

	var b strings.Builder
	if out.Answer != "" {
		b.WriteString(out.Answer)
	}
	for _, r := range out.Results {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s (%s)\n%s", r.Title, r.URL, r.Content)
	}
	return b.String(), nil
}
