package push

import (
	"context"
	"database/sql"
)

type PostgresTokenStore struct {
	db *sql.DB
}

func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore { return &PostgresTokenStore{db: db} }

func (r *PostgresTokenStore) Upsert(ctx context.Context, t DeviceToken) error {
	const q = `
INSERT INTO device_push_tokens (account_id, device_id, token, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (account_id, device_id)
DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q, t.AccountID, t.DeviceID, t.Token, t.UpdatedAt)
	return err
}

func (r *PostgresTokenStore) Delete(ctx context.Context, accountID, deviceID string) error {
	const q = `
DELETE FROM device_push_tokens WHERE account_id = $1 AND device_id = $2
`
	_, err := r.db.ExecContext(ctx, q, accountID, deviceID)
	return err
}

func (r *PostgresTokenStore) ListByAccount(ctx context.Context, accountID string) ([]DeviceToken, error) {
	const q = `
SELECT account_id, device_id, token, updated_at
FROM device_push_tokens
WHERE account_id = $1
`
	rows, err := r.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeviceToken
	for rows.Next() {
		var t DeviceToken
		if err := rows.Scan(&t.AccountID, &t.DeviceID, &t.Token, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresTokenStore) DeleteByToken(ctx context.Context, token string) error {
	const q = `
DELETE FROM device_push_tokens WHERE token = $1
`
	_, err := r.db.ExecContext(ctx, q, token)
	return err
}
