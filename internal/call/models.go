package call

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusRinging  Status = "ringing"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusRejected Status = "rejected"
	StatusMissed   Status = "missed"
	StatusFailed   Status = "failed"
)

// allowedTransitions is the full status graph. Terminal states map to an
// empty set; no transition leaves them.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusRinging: {
		StatusActive:   {},
		StatusRejected: {},
		StatusMissed:   {},
		StatusFailed:   {},
	},
	StatusActive: {
		StatusEnded: {},
	},
	StatusEnded:    {},
	StatusRejected: {},
	StatusMissed:   {},
	StatusFailed:   {},
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := allowedTransitions[st]
	return st, ok
}

func (s Status) CanTransitionTo(next Status) bool {
	_, ok := allowedTransitions[s][next]
	return ok
}

func (s Status) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Session is one call attempt. CalleeAccountID is empty when the dialed
// identifier could not be resolved; the attempt is still created and routed
// best-effort to the caller's own devices.
type Session struct {
	ID               string     `json:"id" db:"id"`
	CallerAccountID  string     `json:"caller_account_id" db:"caller_account_id"`
	CallerDeviceID   string     `json:"caller_device_id" db:"caller_device_id"`
	CalleeIdentifier string     `json:"callee_identifier" db:"callee_identifier"`
	CalleeAccountID  string     `json:"callee_account_id,omitempty" db:"callee_account_id"`
	CalleeName       string     `json:"callee_name,omitempty" db:"callee_name"`
	CallType         string     `json:"call_type" db:"call_type"`
	Status           Status     `json:"status" db:"status"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// CapHeld records whether creation actually acquired a limiter slot. A
	// degraded limiter lets the call through without one; the terminal
	// transition must not release a slot some other open call holds.
	CapHeld bool `json:"-" db:"cap_held"`
}

// participant reports whether the account sits on either side of the call.
func (s Session) participant(accountID string) bool {
	return accountID == s.CallerAccountID || (s.CalleeAccountID != "" && accountID == s.CalleeAccountID)
}

type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "ice-candidate"
)

func ParseSignalType(s string) (SignalType, bool) {
	switch t := SignalType(s); t {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return t, true
	default:
		return "", false
	}
}

// SignalMessage is one WebRTC negotiation message scoped to a call.
// Append-only; poll filters by author device, clear removes the lot.
type SignalMessage struct {
	ID           string          `json:"id" db:"id"`
	CallID       string          `json:"call_id" db:"call_id"`
	SignalType   SignalType      `json:"signal_type" db:"signal_type"`
	Payload      json.RawMessage `json:"payload" db:"payload"`
	FromDeviceID string          `json:"from_device_id" db:"from_device_id"`
	ToDeviceID   string          `json:"to_device_id,omitempty" db:"to_device_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
