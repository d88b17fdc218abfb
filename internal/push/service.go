package push

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrUnregistered is returned by a Sender when the push provider reports the
// token as no longer valid. The service evicts such tokens.
var ErrUnregistered = errors.New("push: token unregistered")

var ErrInvalidArgument = errors.New("push: invalid argument")

// TokenStore is the persistence contract for device push tokens.
type TokenStore interface {
	Upsert(ctx context.Context, t DeviceToken) error
	Delete(ctx context.Context, accountID, deviceID string) error
	ListByAccount(ctx context.Context, accountID string) ([]DeviceToken, error)
	DeleteByToken(ctx context.Context, token string) error
}

// Sender delivers one wake signal to one token.
type Sender interface {
	Send(ctx context.Context, token, kind string, payload map[string]any) error
}

// Service is the push fallback: a best-effort wake signal sent whenever the
// live channel cannot be assumed to have reached the target. Failures are
// logged and swallowed by contract; Notify reports sent/not-sent and never
// returns an error, so no caller can accidentally fail a request on it.
type Service struct {
	tokens TokenStore
	sender Sender
	log    *slog.Logger
	clock  func() time.Time
}

// NewService builds the fallback. sender may be nil, which disables sending
// (local setups without a push key); token upkeep still works.
func NewService(tokens TokenStore, sender Sender, log *slog.Logger) *Service {
	return &Service{tokens: tokens, sender: sender, log: log, clock: time.Now}
}

// RegisterToken stores or replaces the device's push token.
func (s *Service) RegisterToken(ctx context.Context, accountID, deviceID, token string) error {
	if accountID == "" || deviceID == "" || token == "" {
		return ErrInvalidArgument
	}
	return s.tokens.Upsert(ctx, DeviceToken{
		AccountID: accountID,
		DeviceID:  deviceID,
		Token:     token,
		UpdatedAt: s.clock().UTC(),
	})
}

// UnregisterToken drops the device's push token, e.g. on logout.
func (s *Service) UnregisterToken(ctx context.Context, accountID, deviceID string) error {
	if accountID == "" || deviceID == "" {
		return ErrInvalidArgument
	}
	return s.tokens.Delete(ctx, accountID, deviceID)
}

// Notify wakes every registered device of the account, optionally excluding
// one (the originator). Returns true if at least one signal went out.
func (s *Service) Notify(ctx context.Context, accountID, kind string, payload map[string]any, excludeDeviceID string) bool {
	if s.sender == nil {
		s.log.Debug("push disabled, skipping notify", "account_id", accountID, "kind", kind)
		return false
	}

	tokens, err := s.tokens.ListByAccount(ctx, accountID)
	if err != nil {
		s.log.Warn("push token lookup failed", "account_id", accountID, "err", err)
		return false
	}

	sent := false
	for _, t := range tokens {
		if t.DeviceID == excludeDeviceID {
			continue
		}
		if err := s.sender.Send(ctx, t.Token, kind, payload); err != nil {
			if errors.Is(err, ErrUnregistered) {
				// Stale token; evict so we stop burning requests on it.
				if delErr := s.tokens.DeleteByToken(ctx, t.Token); delErr != nil {
					s.log.Warn("stale push token eviction failed", "err", delErr)
				}
				continue
			}
			s.log.Warn("push send failed", "account_id", accountID, "device_id", t.DeviceID, "kind", kind, "err", err)
			continue
		}
		sent = true
	}
	return sent
}
