package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrUnavailable means the service could not be reached or answered
	// with a server error. Callers may retry with backoff.
	ErrUnavailable = errors.New("planner: service unavailable")
	// ErrMalformed means the service answered but the body did not parse.
	// Not retryable at this layer; the formation request is aborted.
	ErrMalformed = errors.New("planner: malformed proposal")
)

// Client talks to the plan generation service over its JSON contract. No
// coupling to any specific model provider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GeneratePlan(ctx context.Context, req PlanRequest) (*Proposal, error) {
	var proposal Proposal
	if err := c.post(ctx, "/v1/staffing-plan", req, &proposal); err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (c *Client) Rebalance(ctx context.Context, req RebalanceRequest) (*RebalancePlan, error) {
	var plan RebalancePlan
	if err := c.post(ctx, "/v1/rebalance", req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("planner: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("planner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
