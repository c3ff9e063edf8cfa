// Package crm talks to the HighLevel contact API: login notes on a
// contact and a last-used timestamp on an upserted contact record. These
// calls are best-effort glue; callers log failures and move on.
package crm

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
)

const (
	defaultBaseURL = "https://services.leadconnectorhq.com"
	apiVersion     = "2021-07-28"

	// DefaultNoteText is used when a usage event carries no note body.
	DefaultNoteText = "last login"
)

// Config holds the CRM credentials and identifiers.
type Config struct {
	// Token authenticates against the contact API.
	Token string

	// LocationID scopes contact upserts to one sub-account.
	LocationID string

	// LastUsedFieldID is the custom field that records the last-used
	// timestamp on upsert.
	LastUsedFieldID string

	// BaseURL overrides the API host, for tests.
	BaseURL string
}

// Client is a thin REST client over the contact API.
type Client struct {
	cfg    Config
	client *http.Client
}

// New builds a client. A nil http.Client gets a default with a timeout.
func New(cfg Config, client *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, client: client}
}

// Enabled reports whether the client has credentials to act with.
func (c *Client) Enabled() bool {
	return c.cfg.Token != ""
}

// AddContactNote posts a note on the contact's timeline. Empty text falls
// back to DefaultNoteText.
func (c *Client) AddContactNote(ctx context.Context, contactID, text string) error {
	if contactID == "" {
		return fmt.Errorf("missing contact id")
	}
	if strings.TrimSpace(text) == "" {
		text = DefaultNoteText
	}
	path := fmt.Sprintf("/contacts/%s/notes", url.PathEscape(contactID))
	return c.post(ctx, path, map[string]string{"body": text})
}

// RecordLastUsed upserts the contact by email and stamps the last-used
// custom field with the current time. Requires a location and field ID.
func (c *Client) RecordLastUsed(ctx context.Context, email, subject string) error {
	if c.cfg.LocationID == "" || c.cfg.LastUsedFieldID == "" {
		return fmt.Errorf("crm upsert not configured")
	}
	if email == "" && subject == "" {
		return fmt.Errorf("no identity to upsert")
	}
	body := map[string]any{
		"locationId": c.cfg.LocationID,
		"email":      email,
		"customFields": []map[string]string{
			{"id": c.cfg.LastUsedFieldID, "value": time.Now().UTC().Format(time.RFC3339)},
		},
		"source": "PaceCal",
	}
	return c.post(ctx, "/contacts/upsert", body)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("crm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("crm returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
