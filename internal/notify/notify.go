// Package notify posts run completion messages to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single webhook delivery attempt.
const DefaultTimeout = 10 * time.Second

// Config describes the webhook target. An empty URL disables notification.
type Config struct {
	URL     string
	Channel string
	Timeout time.Duration
}

// Message is the JSON payload delivered to the webhook.
type Message struct {
	Channel     string `json:"channel,omitempty"`
	RunID       string `json:"run_id"`
	Environment string `json:"environment"`
	Action      string `json:"action"`
	Status      string `json:"status"`
	Mutation    string `json:"mutation"`
}

// Notifier delivers run results to a configured webhook. Delivery is
// best-effort; callers log failures and carry on. A nil Notifier drops
// every message.
type Notifier struct {
	logger  *slog.Logger
	client  *http.Client
	url     string
	channel string
}

// New builds a Notifier for the configured webhook, or nil when no URL
// is configured.
func New(logger *slog.Logger, cfg Config) *Notifier {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		url:     url,
		channel: strings.TrimSpace(cfg.Channel),
	}
}

// Enabled reports whether messages will actually be delivered.
func (n *Notifier) Enabled() bool { return n != nil }

// Send posts one message to the webhook.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if n == nil {
		return nil
	}
	if msg.Channel == "" {
		msg.Channel = n.channel
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notify payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook rejected notification: status %d", resp.StatusCode)
	}

	if n.logger != nil {
		n.logger.Debug("notification delivered", "run_id", msg.RunID, "status", msg.Status)
	}
	return nil
}
