package push

import (
	"context"
	"sync"
)

// MemoryTokenStore is an in-memory TokenStore useful for tests.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]DeviceToken // accountID+"/"+deviceID -> token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]DeviceToken)}
}

func key(accountID, deviceID string) string { return accountID + "/" + deviceID }

func (r *MemoryTokenStore) Upsert(_ context.Context, t DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[key(t.AccountID, t.DeviceID)] = t
	return nil
}

func (r *MemoryTokenStore) Delete(_ context.Context, accountID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, key(accountID, deviceID))
	return nil
}

func (r *MemoryTokenStore) ListByAccount(_ context.Context, accountID string) ([]DeviceToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DeviceToken
	for _, t := range r.tokens {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryTokenStore) DeleteByToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.Token == token {
			delete(r.tokens, k)
		}
	}
	return nil
}
