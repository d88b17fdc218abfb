package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Every authenticated request acts as one device of one account: AccountID and
// DeviceID must both be present. Platform is required only on access tokens and
// drives consumer gating (e.g. only the phone may drain the outgoing-SMS queue).
type Claims struct {
	jwt.RegisteredClaims

	AccountID string    `json:"account_id"`
	DeviceID  string    `json:"device_id"`
	Platform  string    `json:"platform"`
	TokenType TokenType `json:"token_type"`
}
