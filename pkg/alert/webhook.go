package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
)

// EventDigestCreated is the event name posted for a new digest.
const EventDigestCreated = "digest.created"

// Webhook posts notifications to a generic HTTP endpoint.
type Webhook struct {
	client *http.Client
	url    string
	secret string
}

// NewWebhook creates a new generic webhook notifier.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{client: newClient(), url: url, secret: secret}
}

func (w *Webhook) Name() string { return "webhook" }

type webhookEnvelope struct {
	Event string        `json:"event"`
	Data  *Notification `json:"data"`
}

// Sign returns the X-Signature-256 value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (w *Webhook) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(webhookEnvelope{Event: EventDigestCreated, Data: n})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	header := http.Header{}
	header.Set("User-Agent", "hazardradar/1.0")
	header.Set("X-Hazardradar-Event", EventDigestCreated)
	if w.secret != "" {
		header.Set("X-Signature-256", Sign(w.secret, body))
	}
	return deliver(ctx, w.client, w.url, body, header)
}
