// Package ipinfo resolves the process's public network address through an
// external lookup service. The guard treats resolution failure as the shared
// "unknown" bucket, so errors here only degrade throttling granularity.
package ipinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.ipify.org"

// Client queries a plain-text public-IP echo service.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a new Client. An empty endpoint selects the default
// lookup service.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Resolve returns the caller's public address.
func (c *Client) Resolve(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build lookup request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("address lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("address lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", fmt.Errorf("failed to read lookup response: %w", err)
	}

	address := strings.TrimSpace(string(body))
	if address == "" {
		return "", fmt.Errorf("address lookup returned empty body")
	}
	return address, nil
}
