package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// HTTPTool makes HTTP requests on behalf of a model.
//
// It supports GET and POST and returns the status code and body. Useful for
// agents that fetch data from REST APIs or post to webhooks.
//
// Input parameters:
//   - url: target URL (required)
//   - method: "GET" or "POST" (defaults to "GET")
//   - headers: optional map of HTTP headers
//   - body: optional request body for POST
//
// Output:
//   - status_code: HTTP status code
//   - body: response body as string
type HTTPTool struct {
	client *resty.Client
}

// NewHTTPTool creates an HTTP tool. Timeouts are governed by the call
// context.
func NewHTTPTool() *HTTPTool {
	return &HTTPTool{client: resty.New()}
}

// Name returns the tool identifier.
func (h *HTTPTool) Name() string {
	return "http_request"
}

// Call executes an HTTP request with the provided parameters.
func (h *HTTPTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	urlStr, ok := input["url"].(string)
	if !ok || urlStr == "" {
		return nil, fmt.Errorf("url parameter required (string)")
	}

	method := "GET"
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != "GET" && method != "POST" {
		return nil, fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", method)
	}

	req := h.client.R().SetContext(ctx)
	if headers, ok := input["headers"].(map[string]any); ok {
		for key, value := range headers {
			if s, ok := value.(string); ok {
				req.SetHeader(key, s)
			}
		}
	}
	if body, ok := input["body"].(string); ok && body != "" {
		req.SetBody(body)
	}

	var resp *resty.Response
	var err error
	if method == "GET" {
		resp, err = req.Get(urlStr)
	} else {
		resp, err = req.Post(urlStr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	return map[string]any{
		"status_code": resp.StatusCode(),
		"body":        string(resp.Body()),
	}, nil
}
