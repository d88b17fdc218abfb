package push

import "time"

// DeviceToken is one device's push registration. A device holds at most one
// token; re-registering replaces it.
type DeviceToken struct {
	AccountID string    `json:"account_id" db:"account_id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	Token     string    `json:"token" db:"token"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Notification kinds understood by the mobile client's push handler.
const (
	KindIncomingCall   = "incoming_call"
	KindCommandPending = "command_pending"
	KindFindPhone      = "find_phone"
)
