// Package rcsbapi is a thin client for the RCSB Search/Data REST APIs.
// Both are explicitly out of scope as an implementation concern (spec.md
// §1): responses are opaque JSON, consumed here only at the interface
// this package exposes, not interpreted for scientific content.
package rcsbapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultSearchBase = "https://search.rcsb.org/rcsbsearch/v2/query"
	defaultDataBase   = "https://data.rcsb.org/rest/v1/core"
)

// Client queries the RCSB Search and Data REST APIs. The zero value is
// ready to use.
type Client struct {
	SearchBaseURL string
	DataBaseURL   string
	HTTPClient    *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) searchBase() string {
	if c.SearchBaseURL != "" {
		return c.SearchBaseURL
	}
	return defaultSearchBase
}

func (c *Client) dataBase() string {
	if c.DataBaseURL != "" {
		return c.DataBaseURL
	}
	return defaultDataBase
}

// SearchQuery is the minimal request envelope the RCSB Search API
// expects; the query and request_options bodies are passed through
// opaquely as raw JSON.
type SearchQuery struct {
	Query       json.RawMessage `json:"query"`
	ReturnType  string          `json:"return_type"`
	RequestInfo json.RawMessage `json:"request_options,omitempty"`
}

// Search issues a POST query against the RCSB Search API and returns the
// raw decoded JSON response, opaque to this package.
func (c *Client) Search(ctx context.Context, q SearchQuery) (json.RawMessage, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("rcsbapi: encode search query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchBase(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rcsbapi: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Entry fetches the core Data API record for a single PDB id (e.g.
// "1ABC"), returning the raw decoded JSON response.
func (c *Client) Entry(ctx context.Context, id string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/entry/%s", c.dataBase(), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("rcsbapi: build entry request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("rcsbapi: request %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rcsbapi: read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("rcsbapi: %s returned %s: %s", req.URL, resp.Status, trimBody(data))
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("rcsbapi: %s returned non-JSON response", req.URL)
	}
	return json.RawMessage(data), nil
}

func trimBody(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
