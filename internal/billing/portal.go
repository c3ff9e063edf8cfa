// Package billing creates customer portal sessions so a signed-in user
// can manage their subscription.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.stripe.com"

var ErrNoCustomer = errors.New("no billing customer for user")

// Config holds the billing credentials.
type Config struct {
	// SecretKey authenticates against the billing API.
	SecretKey string

	// ReturnURL is where the portal sends the user back afterwards.
	ReturnURL string

	// BaseURL overrides the API host, for tests.
	BaseURL string
}

// Client creates billing portal sessions.
type Client struct {
	cfg    Config
	client *http.Client
}

// New builds a client. A nil http.Client gets a default with a timeout.
func New(cfg Config, client *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBase
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, client: client}
}

// Enabled reports whether billing credentials are configured.
func (c *Client) Enabled() bool {
	return c.cfg.SecretKey != ""
}

// CreatePortalSession opens a portal session for a billing customer and
// returns the URL to redirect the user to.
func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", ErrNoCustomer
	}

	form := url.Values{}
	form.Set("customer", customerID)
	if c.cfg.ReturnURL != "" {
		form.Set("return_url", c.cfg.ReturnURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/billing_portal/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("billing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read billing response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("billing returned status %d: %s", resp.StatusCode, errorSnippet(body))
	}

	var session struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("decode billing response: %w", err)
	}
	if session.URL == "" {
		return "", fmt.Errorf("billing response had no session url")
	}
	return session.URL, nil
}

func errorSnippet(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
