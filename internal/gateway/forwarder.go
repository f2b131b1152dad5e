// Package gateway builds and sends the envelopes the Feishu gateway wraps
// events in before they reach a trigger webhook.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/telhawk-systems/feishu-trigger/internal/shaper"
	"github.com/telhawk-systems/feishu-trigger/internal/trigger"
)

// Envelope types.
const (
	TypeEvent      = "event"
	TypeCardAction = "card_action"
)

// ErrNoURL is returned by Forward when no webhook URL is configured.
var ErrNoURL = errors.New("webhook URL not configured")

// Envelope is the body the gateway posts to a trigger webhook.
type Envelope struct {
	Type      string `json:"type"`
	EventType string `json:"event_type"`
	// Timestamp is the forward time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	Payload   any   `json:"payload"`
}

// NewEnvelope wraps a Feishu event payload.
func NewEnvelope(eventType string, payload any, now time.Time) Envelope {
	return Envelope{
		Type:      TypeEvent,
		EventType: eventType,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	}
}

// NewCardAction wraps a card callback payload. Card callbacks always carry
// the card_action_trigger event type.
func NewCardAction(payload any, now time.Time) Envelope {
	return Envelope{
		Type:      TypeCardAction,
		EventType: trigger.EventTypeCardAction,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	}
}

// EventTypeOf returns header.event_type of a raw Feishu v2 event, or "" if absent.
func EventTypeOf(raw shaper.Event) string {
	return raw.Map("header").String("event_type")
}

// Forwarder posts envelopes to a trigger webhook.
type Forwarder struct {
	url        string
	httpClient *http.Client
}

// NewForwarder returns a Forwarder for url.
func NewForwarder(url string, timeout time.Duration) *Forwarder {
	return &Forwarder{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Forward posts env as JSON. Any non-2xx response is an error.
func (f *Forwarder) Forward(ctx context.Context, env Envelope) error {
	if f.url == "" {
		return ErrNoURL
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("forward %s to %s: %w", env.EventType, f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("forward %s to %s: status %d: %s", env.EventType, f.url, resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
