package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL points at the hosted Plausible instance. Self-hosted
// deployments override it through configuration.
const DefaultBaseURL = "https://plausible.io"

// Client issues authenticated requests against the Plausible API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an API client. An empty baseURL falls back to the
// hosted instance.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: AuthenticatedHTTPClient(context.Background(), apiKey),
	}
}

// APIError is a non-2xx response from the upstream API. The body is
// kept verbatim so callers can classify it.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API returned status %d: %s", e.StatusCode, e.Body)
}

// DecodeError is a 2xx response whose body did not parse as the
// expected shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode upstream response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Query POSTs a query payload to /api/v2/query and decodes the result.
// payload is marshalled as-is; cancellation and timeouts come from ctx.
func (c *Client) Query(ctx context.Context, payload interface{}) (*QueryResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query payload: %w", err)
	}

	url := c.baseURL + "/api/v2/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var result QueryResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if result.Results == nil {
		return nil, &DecodeError{Err: fmt.Errorf("response is missing the results array")}
	}
	return &result, nil
}
