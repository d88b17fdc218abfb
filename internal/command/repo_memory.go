package command

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Command
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Command)}
}

func (r *MemoryRepo) Insert(_ context.Context, cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[cmd.ID] = cmd
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, accountID, id string) (Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.rows[id]
	if !ok || cmd.AccountID != accountID {
		return Command{}, ErrNotFound
	}
	return cmd, nil
}

func (r *MemoryRepo) ListPending(_ context.Context, accountID string, kind Kind, limit int) ([]Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, 0)
	for _, cmd := range r.rows {
		if cmd.AccountID == accountID && cmd.Kind == kind && cmd.Status == StatusPending {
			out = append(out, cmd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetStatus(_ context.Context, accountID, id string, status Status, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.rows[id]
	if !ok || cmd.AccountID != accountID {
		return false, nil
	}
	cmd.Status = status
	cmd.UpdatedAt = now
	r.rows[id] = cmd
	return true, nil
}
