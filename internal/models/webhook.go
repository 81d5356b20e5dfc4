package models

import (
	"encoding/json"
	"time"
)

// Webhook event types delivered by the processor
const (
	EventChargeSucceeded = "charge.succeeded"
	EventChargeFailed    = "charge.failed"
	EventTransferPaid    = "transfer.paid"
	EventTransferFailed  = "transfer.failed"
	EventAccountUpdated  = "account.updated"
)

// WebhookEvent is the processor's event envelope. Data holds the raw object
// payload; the reconciler decodes it per event type.
type WebhookEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt int64           `json:"created"`
	Data      json.RawMessage `json:"data"`
}

// ProcessedEvent records a webhook event id that has already been handled,
// so at-least-once delivery cannot advance state twice.
type ProcessedEvent struct {
	ReceivedAt time.Time `db:"received_at"`
	EventID    string    `db:"event_id"`
	EventType  string    `db:"event_type"`
}
