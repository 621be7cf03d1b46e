// Package webhook posts JSON documents to a configured HTTP endpoint. It backs
// the generic CRM sink (flat lead payload) and the reminder callback that
// pushes due reminders back to the chat transport.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/vibe-compass/internal/domain"
)

const userAgent = "vibe-compass/1"

// Client is safe for concurrent use.
type Client struct {
	URL    string
	Secret string
	http   *http.Client
}

// NewClient returns a client for url. secret, when set, is sent as a bearer
// token so the receiver can authenticate the call.
func NewClient(url, secret string, timeout time.Duration) *Client {
	return &Client{
		URL:    strings.TrimSpace(url),
		Secret: secret,
		http:   &http.Client{Timeout: timeout},
	}
}

// Name implements services.LeadSink.
func (c *Client) Name() string { return "webhook" }

// Send implements services.LeadSink by posting the flat payload.
func (c *Client) Send(ctx context.Context, p domain.LeadPayload) error {
	return c.PostJSON(ctx, p)
}

// PostJSON encodes v and posts it. Any non-2xx status is an error.
func (c *Client) PostJSON(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("webhook: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.Secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
