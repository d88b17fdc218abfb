package call

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]Session
	signals  map[string][]SignalMessage
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		sessions: make(map[string]Session),
		signals:  make(map[string][]SignalMessage),
	}
}

func (r *MemoryRepo) InsertSession(_ context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *MemoryRepo) GetSession(_ context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) UpdateSessionStatus(_ context.Context, id string, status Status, endedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	if endedAt != nil {
		s.EndedAt = endedAt
	}
	r.sessions[id] = s
	return nil
}

func (r *MemoryRepo) AppendSignal(_ context.Context, m SignalMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals[m.CallID] = append(r.signals[m.CallID], m)
	return nil
}

func (r *MemoryRepo) ListSignals(_ context.Context, callID, excludeDeviceID string) ([]SignalMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SignalMessage, 0)
	for _, m := range r.signals[callID] {
		if m.FromDeviceID != excludeDeviceID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) ClearSignals(_ context.Context, callID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.signals, callID)
	return nil
}
