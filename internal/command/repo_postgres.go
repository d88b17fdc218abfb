package command

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists queue records in the commands table.
//
// Expected schema: see db/migrations. The (account_id, kind, status, created_at)
// index keeps ListPending a point read.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Insert(ctx context.Context, cmd Command) error {
	const q = `
INSERT INTO commands (id, account_id, kind, payload, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q,
		cmd.ID,
		cmd.AccountID,
		string(cmd.Kind),
		[]byte(cmd.Payload),
		string(cmd.Status),
		cmd.CreatedAt,
		cmd.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, accountID, id string) (Command, error) {
	const q = `
SELECT id, account_id, kind, payload, status, created_at, updated_at
FROM commands
WHERE account_id = $1 AND id = $2
`
	var cmd Command
	if err := r.db.QueryRowContext(ctx, q, accountID, id).Scan(
		&cmd.ID,
		&cmd.AccountID,
		&cmd.Kind,
		&cmd.Payload,
		&cmd.Status,
		&cmd.CreatedAt,
		&cmd.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Command{}, ErrNotFound
		}
		return Command{}, err
	}
	return cmd, nil
}

func (r *PostgresRepo) ListPending(ctx context.Context, accountID string, kind Kind, limit int) ([]Command, error) {
	const q = `
SELECT id, account_id, kind, payload, status, created_at, updated_at
FROM commands
WHERE account_id = $1 AND kind = $2 AND status = $3
ORDER BY created_at ASC
LIMIT $4
`
	rows, err := r.db.QueryContext(ctx, q, accountID, string(kind), string(StatusPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Command, 0, limit)
	for rows.Next() {
		var cmd Command
		if err := rows.Scan(
			&cmd.ID,
			&cmd.AccountID,
			&cmd.Kind,
			&cmd.Payload,
			&cmd.Status,
			&cmd.CreatedAt,
			&cmd.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) SetStatus(ctx context.Context, accountID, id string, status Status, now time.Time) (bool, error) {
	const q = `
UPDATE commands
SET status = $3, updated_at = $4
WHERE account_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q, accountID, id, string(status), now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
