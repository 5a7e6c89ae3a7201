// Package docgen provides an HTTP client for the document generation
// collaborator. Generation is best-effort: callers log failures and record
// the verdict without document references.
package docgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/port/docgen"
)

var _ docgen.Generator = (*Client)(nil)

// Client talks to the document generation service over HTTP JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a docgen client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate asks the service to render supporting documents for a recorded
// deliberation and returns their references.
func (c *Client) Generate(ctx context.Context, d *deliberation.Deliberation) ([]string, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal deliberation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate documents: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("docgen error %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Refs []string `json:"refs"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal refs: %w", err)
	}
	return result.Refs, nil
}
