package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)

		var req struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "capital of France", req.Query)
		assert.Equal(t, 5, req.Limit)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"source_id": "d1", "source_label": "geo.md", "text": "Paris"},
				{"source_id": "d2", "source_label": "facts.md", "text": "France"},
			},
		})
	}))
	defer server.Close()

	client := NewVectorClient(server.URL + "/")
	results, err := client.Search(context.Background(), "capital of France", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{SourceID: "d1", SourceLabel: "geo.md", Text: "Paris"}, results[0])
}

func TestVectorClientEmptyIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	results, err := NewVectorClient(server.URL).Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewVectorClient(server.URL).Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestTavilyClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "secret", req["api_key"])
		assert.Equal(t, "capital of France", req["query"])
		assert.Equal(t, true, req["include_answer"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tavilyResponse{
			Answer: "Paris is the capital of France.",
			Results: []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Content string `json:"content"`
			}{
				{Title: "France", URL: "https://example.com/fr", Content: "Paris, pop. 2.1M"},
			},
		})
	}))
	defer server.Close()

	client := &TavilyClient{client: resty.New().SetBaseURL(server.URL), apiKey: "secret"}
	digest, err := client.Search(context.Background(), "capital of France")
	require.NoError(t, err)
	assert.Contains(t, digest, "Paris is the capital of France.")
	assert.Contains(t, digest, "France (https://example.com/fr)")
	assert.Contains(t, digest, "Paris, pop. 2.1M")
}

func TestTavilyClientAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := &TavilyClient{client: resty.New().SetBaseURL(server.URL), apiKey: "bad"}
	_, err := client.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestMockRetrieverLimit(t *testing.T) {
	mock := &MockRetriever{Results: []Result{{Text: "a"}, {Text: "b"}, {Text: "c"}}}

	results, err := mock.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"q"}, mock.Queries())
}
