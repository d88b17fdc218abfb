package call

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) InsertSession(ctx context.Context, s Session) error {
	const q = `
INSERT INTO call_sessions (
  id, caller_account_id, caller_device_id, callee_identifier, callee_account_id,
  callee_name, call_type, status, started_at, ended_at, cap_held
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := r.db.ExecContext(ctx, q,
		s.ID,
		s.CallerAccountID,
		s.CallerDeviceID,
		s.CalleeIdentifier,
		nullIfEmpty(s.CalleeAccountID),
		nullIfEmpty(s.CalleeName),
		s.CallType,
		string(s.Status),
		s.StartedAt,
		s.EndedAt,
		s.CapHeld,
	)
	return err
}

func (r *PostgresRepo) GetSession(ctx context.Context, id string) (Session, error) {
	const q = `
SELECT id, caller_account_id, caller_device_id, callee_identifier, callee_account_id,
       callee_name, call_type, status, started_at, ended_at, cap_held
FROM call_sessions
WHERE id = $1
`
	var s Session
	var calleeAccountID, calleeName sql.NullString
	var endedAt sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID,
		&s.CallerAccountID,
		&s.CallerDeviceID,
		&s.CalleeIdentifier,
		&calleeAccountID,
		&calleeName,
		&s.CallType,
		&s.Status,
		&s.StartedAt,
		&endedAt,
		&s.CapHeld,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	s.CalleeAccountID = calleeAccountID.String
	s.CalleeName = calleeName.String
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return s, nil
}

func (r *PostgresRepo) UpdateSessionStatus(ctx context.Context, id string, status Status, endedAt *time.Time) error {
	const q = `
UPDATE call_sessions
SET status = $2, ended_at = COALESCE($3, ended_at)
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, string(status), endedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) AppendSignal(ctx context.Context, m SignalMessage) error {
	const q = `
INSERT INTO call_signals (id, call_id, signal_type, payload, from_device_id, to_device_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q,
		m.ID,
		m.CallID,
		string(m.SignalType),
		[]byte(m.Payload),
		m.FromDeviceID,
		nullIfEmpty(m.ToDeviceID),
		m.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListSignals(ctx context.Context, callID, excludeDeviceID string) ([]SignalMessage, error) {
	const q = `
SELECT id, call_id, signal_type, payload, from_device_id, to_device_id, created_at
FROM call_signals
WHERE call_id = $1 AND from_device_id <> $2
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, callID, excludeDeviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SignalMessage, 0)
	for rows.Next() {
		var m SignalMessage
		var toDeviceID sql.NullString
		if err := rows.Scan(
			&m.ID,
			&m.CallID,
			&m.SignalType,
			&m.Payload,
			&m.FromDeviceID,
			&toDeviceID,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.ToDeviceID = toDeviceID.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ClearSignals(ctx context.Context, callID string) error {
	const q = `
DELETE FROM call_signals WHERE call_id = $1
`
	_, err := r.db.ExecContext(ctx, q, callID)
	return err
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
