package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("identity: not found")
	ErrInvalidArgument = errors.New("identity: invalid argument")
)

// Store is the persistence contract for the registry.
//
// Register must run as one atomic unit: evict any other account's registration
// of the number, upsert the caller's, and mirror the number onto the caller's
// profile. Implementations serialize Register calls against each other; reads
// proceed without contention.
type Store interface {
	Register(ctx context.Context, accountID, phoneNumber string) error
	Resolve(ctx context.Context, phoneNumber string) (string, error)
	LookupContact(ctx context.Context, identifier string) (string, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Normalize reduces a dialed string to the canonical form: digits plus an
// optional leading '+'. The canonical form is the only key ever stored or
// compared.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "+" {
		return ""
	}
	return s
}

// Register claims a phone number for the account, evicting any registration
// held by a different account. Losing a registration race is not an error:
// last writer wins by design.
func (s *Service) Register(ctx context.Context, accountID, rawPhoneNumber string) (string, error) {
	if accountID == "" {
		return "", ErrInvalidArgument
	}
	canonical := Normalize(rawPhoneNumber)
	if canonical == "" {
		return "", ErrInvalidArgument
	}
	if err := s.store.Register(ctx, accountID, canonical); err != nil {
		return "", err
	}
	return canonical, nil
}

// Resolve maps a dialed phone number to the owning account.
func (s *Service) Resolve(ctx context.Context, rawPhoneNumber string) (string, error) {
	canonical := Normalize(rawPhoneNumber)
	if canonical == "" {
		return "", ErrInvalidArgument
	}
	return s.store.Resolve(ctx, canonical)
}

// ResolveTarget maps an arbitrary dialed identifier to an account for call
// routing: the direct contact mapping is consulted first, then the phone
// registry with the normalized number.
func (s *Service) ResolveTarget(ctx context.Context, identifier string) (string, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return "", ErrInvalidArgument
	}

	if accountID, err := s.store.LookupContact(ctx, trimmed); err == nil {
		return accountID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	canonical := Normalize(trimmed)
	if canonical == "" {
		return "", ErrNotFound
	}
	return s.store.Resolve(ctx, canonical)
}
