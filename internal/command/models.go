package command

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"

	// Delivery lifecycle for kinds that track outcomes (outgoing messages).
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Command is one unit of asynchronous work enqueued for a device to pick up.
//
// Rows are never deleted on processing, only marked, so the queue doubles as
// an audit trail; retention is handled by an external cleanup job.
type Command struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"account_id" db:"account_id"`
	Kind      Kind            `json:"kind" db:"kind"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	Status    Status          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
