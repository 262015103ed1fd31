package transactions

import (
	"encoding/json"
	"time"
)

const (
	EventPaymentSettled = "PaymentSettled"

	TopicPaymentSettled = "payment.settled"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "payment-recon-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type PaymentSettledPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	TotalCents  int    `json:"total_cents"`
	PaymentType string `json:"payment_type,omitempty"`
	SettledAt   string `json:"settled_at,omitempty"`
}
