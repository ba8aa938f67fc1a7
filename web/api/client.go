// Package api provides a client for the backend server.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxGreetingBytes bounds how much of a response body is read.
const maxGreetingBytes = 1 << 20

// Client is a client for the backend server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client. baseURL has no trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient returns a new client that sends requests through hc.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: hc,
	}
}

// BaseURL returns the backend address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetGreeting fetches the greeting from the backend root route and returns
// the body verbatim.
func (c *Client) GetGreeting(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/", "text/plain")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Ping reports whether the backend answers its root route.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/", "text/plain")
	return err
}

func (c *Client) get(ctx context.Context, path, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGreetingBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
