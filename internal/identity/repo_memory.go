package identity

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store useful for tests. The single mutex gives
// the same serialization the Postgres advisory lock provides.
type MemoryStore struct {
	mu            sync.Mutex
	registrations map[string]string // phone -> account
	contacts      map[string]string // identifier -> account
	profiles      map[string]string // account -> mirrored phone
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		registrations: make(map[string]string),
		contacts:      make(map[string]string),
		profiles:      make(map[string]string),
	}
}

func (s *MemoryStore) Register(_ context.Context, accountID, phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[phoneNumber] = accountID
	s.profiles[accountID] = phoneNumber
	return nil
}

func (s *MemoryStore) Resolve(_ context.Context, phoneNumber string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accountID, ok := s.registrations[phoneNumber]
	if !ok {
		return "", ErrNotFound
	}
	return accountID, nil
}

func (s *MemoryStore) LookupContact(_ context.Context, identifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accountID, ok := s.contacts[identifier]
	if !ok {
		return "", ErrNotFound
	}
	return accountID, nil
}

// AddContact seeds a direct mapping; test helper.
func (s *MemoryStore) AddContact(identifier, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[identifier] = accountID
}

// MirroredPhone reports the phone mirrored onto the account profile; test helper.
func (s *MemoryStore) MirroredPhone(accountID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[accountID]
}
