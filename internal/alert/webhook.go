package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink posts {"message": reason} to an alert display service, such as
// an on-screen alert activity on the device.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{url: url, client: client}
}

type webhookPayload struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

func (s *WebhookSink) Notify(ctx context.Context, reason string) error {
	body, err := json.Marshal(webhookPayload{Message: reason, Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal alert: %w: %w", ErrPermanent, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w: %w", ErrPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("alert webhook returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("alert webhook returned %d: %w", resp.StatusCode, ErrPermanent)
	}
	return nil
}
