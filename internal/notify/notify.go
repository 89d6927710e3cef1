// Package notify pushes run outcomes to an optional webhook. Delivery is
// fire and forget: a notification must never fail a pipeline run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Event is one pushed run outcome.
type Event struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	ItemCount int       `json:"item_count,omitempty"`
	Urgent    bool      `json:"urgent,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier delivers events. Implementations swallow their own errors.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NewNop returns a notifier that drops every event.
func NewNop() Notifier { return nopNotifier{} }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}

const webhookTimeout = 10 * time.Second

type webhookNotifier struct {
	url    string
	client *http.Client
	logger *zerolog.Logger
}

// NewWebhook returns a notifier that POSTs each event as JSON to url.
func NewWebhook(url string, client *http.Client, logger *zerolog.Logger) Notifier {
	if client == nil {
		client = &http.Client{Timeout: webhookTimeout}
	}

	return &webhookNotifier{url: url, client: client, logger: logger}
}

func (n *webhookNotifier) Notify(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn().Err(err).Msg("notification encode failed")

		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn().Err(err).Msg("notification request failed")

		return
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn().Err(err).Str("kind", event.Kind).Msg("notification delivery failed")

		return
	}

	resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		n.logger.Warn().Int("status", resp.StatusCode).Str("kind", event.Kind).Msg("notification rejected")
	}
}
