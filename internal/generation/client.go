package generation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/phrazzld/scry-decks/internal/config"
)

// Client prepares authenticated requests against the remote API.
type Client struct {
	baseURL *url.URL
	tokens  TokenProvider
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg config.RemoteConfig, tokens TokenProvider) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: malformed base url %q", ErrInvalidConfig, cfg.BaseURL)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: token provider is required", ErrInvalidConfig)
	}
	return &Client{baseURL: base, tokens: tokens}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// NewRequest builds a request for path relative to the base URL with a
// fresh bearer token.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	target := c.baseURL.JoinPath(strings.TrimPrefix(path, "/"))
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
