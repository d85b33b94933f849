// Package alert provides best-effort sinks for out-of-band security
// notifications. Delivery failures never block the operation that raised the
// alert; callers log and move on.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mkowalczyk/authguard/internal/guard"
)

// WebhookSink POSTs alerts as JSON to a remote security endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a new WebhookSink
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type webhookPayload struct {
	Type      string `json:"type"`
	Address   string `json:"address"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Notify delivers one alert.
func (s *WebhookSink) Notify(ctx context.Context, a guard.Alert) error {
	payload := webhookPayload{
		Type:      a.Type,
		Address:   a.Address,
		Details:   a.Details,
		Timestamp: a.Time.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
