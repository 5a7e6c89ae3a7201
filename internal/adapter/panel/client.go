// Package panel provides an HTTP client for the external reviewer panel.
// Each agent persona is exposed by the panel as a review endpoint; the
// client posts a project snapshot and receives a structured verdict.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/port/collaborator"
)

// Compile-time check that Client satisfies the collaborator port.
var _ collaborator.Invoker = (*Client)(nil)

// Client talks to the reviewer panel over HTTP JSON.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a panel client. timeout bounds a single invocation; on
// expiry the caller receives domain.ErrCollaboratorTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		// The transport-level timeout is a backstop; the per-call context
		// deadline is the contractual bound.
		httpClient: &http.Client{Timeout: timeout + 5*time.Second},
	}
}

// verdictResponse is the wire shape returned by the panel. The decision is
// a loose string normalized at this boundary.
type verdictResponse struct {
	Decision     string   `json:"decision"`
	Analysis     string   `json:"analysis"`
	Risk         string   `json:"risk,omitempty"`
	Adjustments  string   `json:"adjustments,omitempty"`
	DocumentRefs []string `json:"document_refs,omitempty"`
}

// Invoke posts the project snapshot to the agent's review endpoint and
// blocks until the verdict arrives or the deadline expires.
func (c *Client) Invoke(ctx context.Context, agentID string, snapshot project.Snapshot) (*collaborator.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/agents/%s/review", c.baseURL, agentID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("agent %s: %w", agentID, domain.ErrCollaboratorTimeout)
		}
		return nil, fmt.Errorf("invoke agent %s: %w", agentID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read verdict: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("panel error %d for agent %s: %s", resp.StatusCode, agentID, string(data))
	}

	var raw verdictResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal verdict: %w", err)
	}

	decision, err := deliberation.ParseDecision(raw.Decision)
	if err != nil {
		return nil, fmt.Errorf("agent %s returned invalid decision: %w", agentID, err)
	}

	return &collaborator.Verdict{
		Decision:     decision,
		Analysis:     raw.Analysis,
		Risk:         raw.Risk,
		Adjustments:  raw.Adjustments,
		DocumentRefs: raw.DocumentRefs,
	}, nil
}
