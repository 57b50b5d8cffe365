// Package search provides an HTTP client for the external collection-scoped
// retrieval service. The ranking algorithm behind it is opaque to the
// gateway; the client only forwards a query plus the collection scope and
// returns ranked text snippets.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Snippet is one ranked retrieval result.
type Snippet struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source,omitempty"`
}

// Client retrieves ranked snippets for a query scoped to a set of
// document collections.
type Client interface {
	Search(ctx context.Context, collections []int64, query string) ([]Snippet, error)
}

// HTTPClient is the default Client talking to the retrieval service over
// HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a retrieval client for the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchRequest struct {
	Collections []int64 `json:"collections"`
	Query       string  `json:"query"`
}

type searchResponse struct {
	Results []Snippet `json:"results"`
}

// Search posts the query to the retrieval service and decodes the ranked
// results.
func (c *HTTPClient) Search(ctx context.Context, collections []int64, query string) ([]Snippet, error) {
	body, err := json.Marshal(searchRequest{Collections: collections, Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search service returned %d: %s", resp.StatusCode, string(data))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return decoded.Results, nil
}
