package identity

import "time"

// PhoneRegistration binds a canonical phone number to exactly one account.
//
// Invariant: at most one active registration per phone number at any time.
// Registration writes are serialized (advisory lock over the registry) so the
// number is never visible as owned by two accounts, even mid-switch.
type PhoneRegistration struct {
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	AccountID   string    `json:"account_id" db:"account_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ContactLink maps an arbitrary dialed identifier (email, handle) directly to
// an account. Consulted before the phone registry when resolving call targets.
type ContactLink struct {
	Identifier string    `json:"identifier" db:"identifier"`
	AccountID  string    `json:"account_id" db:"account_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
