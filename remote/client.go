//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package remote implements the HTTP client for the memory service:
// submitting conversations for summarization, polling task status and
// summary readiness, and retrieving categorized results.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/membridge/membridge/log"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultUserAgent  = "membridge-go/0.1"
	defaultGroup      = "basic"
)

// Client talks to the memory service. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	maxRetries int
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxRetries bounds retries of transport-level failures. Status
// errors are never retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a memory service client for the given base URL and
// API key.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		userAgent:  defaultUserAgent,
		maxRetries: defaultMaxRetries,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Memorize submits a conversation for summarization and returns the
// task handle.
func (c *Client) Memorize(ctx context.Context, req *MemorizeRequest) (*MemorizeResponse, error) {
	if req.SessionDate == "" {
		req.SessionDate = time.Now().Format(time.RFC3339)
	}
	var resp MemorizeResponse
	if err := c.do(ctx, http.MethodPost, "api/v1/memory/memorize", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TaskStatus queries the lifecycle status of a task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	if taskID == "" {
		return nil, fmt.Errorf("remote: task id is required")
	}
	var resp TaskStatusResponse
	endpoint := "api/v1/memory/memorize/status/" + url.PathEscape(taskID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SummaryReady queries whether the categorized summary content of a
// task is fetchable. An empty group defaults to "basic".
func (c *Client) SummaryReady(ctx context.Context, taskID, group string) (*SummaryReadyResponse, error) {
	if taskID == "" {
		return nil, fmt.Errorf("remote: task id is required")
	}
	if group == "" {
		group = defaultGroup
	}
	var resp SummaryReadyResponse
	endpoint := "api/v1/memory/memorize/status/" + url.PathEscape(taskID) + "/summary"
	if err := c.do(ctx, http.MethodPost, endpoint, &SummaryReadyRequest{Group: group}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DefaultCategories retrieves the categorized summaries for a
// user/agent pair.
func (c *Client) DefaultCategories(ctx context.Context, req *DefaultCategoriesRequest) (*DefaultCategoriesResponse, error) {
	var resp DefaultCategoriesResponse
	if err := c.do(ctx, http.MethodPost, "api/v1/memory/retrieve/default-categories", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMemories removes stored memories for a user; agentID narrows
// the deletion to one agent when non-empty.
func (c *Client) DeleteMemories(ctx context.Context, userID, agentID string) (*DeleteMemoryResponse, error) {
	var resp DeleteMemoryResponse
	req := &DeleteMemoryRequest{UserID: userID, AgentID: agentID}
	if err := c.do(ctx, http.MethodPost, "api/v1/memory/delete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do issues one request with retry on transport errors and decodes the
// JSON response into out.
func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
	}
	target := c.baseURL + "/" + endpoint

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return fmt.Errorf("remote: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			log.Warnf("remote: %s %s failed (attempt %d/%d): %v",
				method, endpoint, attempt+1, c.maxRetries+1, err)
			continue
		}
		return decodeResponse(resp, out)
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrConnection, c.maxRetries+1, lastErr)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			apiErr.Message = "authentication failed, check your API key"
		case http.StatusUnprocessableEntity:
			apiErr.Message = "validation error: " + string(data)
		default:
			apiErr.Message = "request failed: " + string(data)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}
