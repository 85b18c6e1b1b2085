// Package notify carries the outbound "follow-up due" signal to the
// platform's notification service. Delivery mechanics past the webhook POST
// (push, SMS, retries, dedupe) belong to that service.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mindguard/config"
	"mindguard/core/store"
)

// FollowUpDue tells the notifier to re-check in with a user about an open
// crisis event.
type FollowUpDue struct {
	EventID      string         `json:"eventId"`
	UserID       string         `json:"userId"`
	Severity     store.Severity `json:"severity"`
	ScheduledFor time.Time      `json:"scheduledFor"`
}

type Sender interface {
	SendFollowUpDue(ctx context.Context, msg FollowUpDue) error
}

type HTTPWebhookSender struct {
	client     *http.Client
	webhookURL string
}

func NewHTTPWebhookSender(cfg config.NotifierConfig) *HTTPWebhookSender {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPWebhookSender{
		client:     &http.Client{Timeout: timeout},
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
	}
}

func (s *HTTPWebhookSender) SendFollowUpDue(ctx context.Context, msg FollowUpDue) error {
	if s.webhookURL == "" {
		return errors.New("notifier webhook url missing")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("notifier webhook status %d", resp.StatusCode)
}

// NopSender is used when the notifier is disabled in config.
type NopSender struct{}

func (NopSender) SendFollowUpDue(ctx context.Context, msg FollowUpDue) error {
	return nil
}
