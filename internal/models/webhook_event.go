package models

import (
	"encoding/json"
	"time"
)

const (
	WebhookEventReceived  = "received"
	WebhookEventProcessed = "processed"
	WebhookEventFailed    = "failed"
)

// WebhookEvent is the durable record of a signed payment provider delivery.
type WebhookEvent struct {
	ID                int64           `json:"id"`
	ProviderEventID   string          `json:"provider_event_id"`
	EventType         string          `json:"event_type"`
	CheckoutSessionID *string         `json:"checkout_session_id,omitempty"`
	Payload           json.RawMessage `json:"payload"`
	Status            string          `json:"status"`
	LastError         *string         `json:"last_error,omitempty"`
	Attempts          int             `json:"attempts"`
	ReceivedAt        time.Time       `json:"received_at"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
}
