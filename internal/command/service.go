package command

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("command: not found")
	ErrInvalidArgument = errors.New("command: invalid argument")
	ErrInvalidStatus   = errors.New("command: status not allowed for kind")
)

// Repository is the persistence contract for queue records.
//
// No Delete method is provided by design: processed rows stay behind as the
// audit trail.
type Repository interface {
	Insert(ctx context.Context, cmd Command) error
	Get(ctx context.Context, accountID, id string) (Command, error)
	ListPending(ctx context.Context, accountID string, kind Kind, limit int) ([]Command, error)
	SetStatus(ctx context.Context, accountID, id string, status Status, now time.Time) (bool, error)
}

// Service implements the shared work-queue pattern: producers insert rows, the
// kind's designated consumer polls and acks. Delivery is at-least-once; a
// consumer that polls twice before acking sees the record twice and must
// process idempotently.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

const defaultListLimit = 50
const maxListLimit = 200

func (s *Service) Enqueue(ctx context.Context, accountID string, kind Kind, payload json.RawMessage) (Command, error) {
	if accountID == "" {
		return Command{}, ErrInvalidArgument
	}
	if _, ok := kinds[kind]; !ok {
		return Command{}, ErrInvalidArgument
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return Command{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	cmd := Command{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// ListPending returns pending records in creation order. Records stay pending
// until the consumer acks them, so a wake hint lost on the live channel only
// delays pickup until the next poll.
func (s *Service) ListPending(ctx context.Context, accountID string, kind Kind, limit int) ([]Command, error) {
	if accountID == "" {
		return nil, ErrInvalidArgument
	}
	if _, ok := kinds[kind]; !ok {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListPending(ctx, accountID, kind, limit)
}

// MarkProcessed acks a record. Acking twice is a no-op, which is what makes
// at-least-once polling safe for consumers. The kind must match the stored
// record: consumer gating is per kind, so an ack through the wrong feature
// queue must look like the record does not exist.
func (s *Service) MarkProcessed(ctx context.Context, accountID, id string, kind Kind) error {
	if accountID == "" || id == "" {
		return ErrInvalidArgument
	}
	cmd, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return err
	}
	if cmd.Kind != kind {
		return ErrNotFound
	}
	found, err := s.repo.SetStatus(ctx, accountID, id, StatusProcessed, s.clock().UTC())
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves a record to a richer lifecycle status. The status must be
// in the kind's allowed set, and kind must match the stored record so a caller
// cannot slide a record between feature queues.
func (s *Service) UpdateStatus(ctx context.Context, accountID, id string, kind Kind, status Status) (Command, error) {
	if accountID == "" || id == "" {
		return Command{}, ErrInvalidArgument
	}
	cmd, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return Command{}, err
	}
	if cmd.Kind != kind {
		return Command{}, ErrNotFound
	}
	if !kind.AllowsStatus(status) {
		return Command{}, ErrInvalidStatus
	}

	now := s.clock().UTC()
	if _, err := s.repo.SetStatus(ctx, accountID, id, status, now); err != nil {
		return Command{}, err
	}
	cmd.Status = status
	cmd.UpdatedAt = now
	return cmd, nil
}
