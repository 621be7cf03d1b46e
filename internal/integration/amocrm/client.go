// Package amocrm delivers funnel leads to amoCRM (Kommo) through the v4 REST
// API. One call creates the lead with an embedded contact and the funnel
// answers as custom fields.
package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/vibe-compass/internal/domain"
)

// Custom field names as configured in the amoCRM account.
const (
	FieldPainPoint  = "Main problem"
	FieldTimeSpent  = "Time on routine"
	FieldEmotion    = "Emotional state"
	FieldTelegramID = "Telegram ID"
)

// ErrNotConfigured is returned when the client has no token or domain.
var ErrNotConfigured = errors.New("amocrm: not configured")

const maxErrorBody = 512

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for account domain (e.g. "example.amocrm.ru").
// A domain that already carries a scheme is used as is.
func NewClient(domain, token string, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(domain), "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Client{
		baseURL: base + "/api/v4",
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: timeout},
	}
}

// Name implements services.LeadSink.
func (c *Client) Name() string { return "amocrm" }

// Send implements services.LeadSink.
func (c *Client) Send(ctx context.Context, p domain.LeadPayload) error {
	_, err := c.CreateLead(ctx, p)
	return err
}

// CreateLead posts the lead and returns the id amoCRM assigned to it.
func (c *Client) CreateLead(ctx context.Context, p domain.LeadPayload) (int, error) {
	if c.token == "" || c.baseURL == "/api/v4" {
		return 0, ErrNotConfigured
	}

	body, err := json.Marshal([]leadRequest{buildLead(p)})
	if err != nil {
		return 0, fmt.Errorf("amocrm: encode lead: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/leads", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("amocrm: build request: %w", err)
	}
	c.addAuthHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("amocrm: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("amocrm: create lead: status %d: %s", resp.StatusCode, truncate(string(raw), maxErrorBody))
	}

	var out leadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("amocrm: decode response: %w", err)
	}
	if len(out.Embedded.Leads) == 0 {
		return 0, errors.New("amocrm: lead not created")
	}
	return out.Embedded.Leads[0].ID, nil
}

func buildLead(p domain.LeadPayload) leadRequest {
	return leadRequest{
		Name:  p.Title,
		Price: p.Price,
		Embedded: embedded{Contacts: []contact{{
			FirstName: p.Name,
			CustomFieldsValues: []customField{{
				FieldCode: "PHONE",
				Values:    []fieldValue{{Value: "Telegram: " + p.ContactHandle}},
			}},
		}}},
		CustomFieldsValues: []customField{
			{FieldName: FieldPainPoint, Values: []fieldValue{{Value: p.PainPointLabel}}},
			{FieldName: FieldTimeSpent, Values: []fieldValue{{Value: p.TimeSpentLabel}}},
			{FieldName: FieldEmotion, Values: []fieldValue{{Value: p.EmotionLabel}}},
			{FieldName: FieldTelegramID, Values: []fieldValue{{Value: p.ExternalID}}},
		},
	}
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
