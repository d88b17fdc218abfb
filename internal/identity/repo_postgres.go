package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/utils"
)

// Registration writes take a registry-wide advisory lock so the delete+upsert
// pair is serialized across processes. Registration is rare relative to
// lookups, so a single critical section is acceptable.
const registryLockKey int64 = 0x53796E63466C6F77 // "SyncFlow"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Register(ctx context.Context, accountID, phoneNumber string) error {
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, registryLockKey); err != nil {
			return err
		}

		// Evict a different owner first so the number is never visible twice.
		const del = `
DELETE FROM phone_registrations
WHERE phone_number = $1 AND account_id <> $2
`
		if _, err := tx.ExecContext(ctx, del, phoneNumber, accountID); err != nil {
			return err
		}

		const upsert = `
INSERT INTO phone_registrations (phone_number, account_id, created_at)
VALUES ($1, $2, now())
ON CONFLICT (phone_number)
DO UPDATE SET account_id = EXCLUDED.account_id, created_at = now()
`
		if _, err := tx.ExecContext(ctx, upsert, phoneNumber, accountID); err != nil {
			return err
		}

		// Mirror onto the profile row for visibility in clients.
		const mirror = `
UPDATE accounts SET phone_number = $2, updated_at = now() WHERE id = $1
`
		_, err := tx.ExecContext(ctx, mirror, accountID, phoneNumber)
		return err
	})
}

func (s *PostgresStore) Resolve(ctx context.Context, phoneNumber string) (string, error) {
	const q = `
SELECT account_id FROM phone_registrations WHERE phone_number = $1
`
	var accountID string
	if err := s.db.QueryRowContext(ctx, q, phoneNumber).Scan(&accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return accountID, nil
}

func (s *PostgresStore) LookupContact(ctx context.Context, identifier string) (string, error) {
	const q = `
SELECT account_id FROM contact_links WHERE identifier = $1
`
	var accountID string
	if err := s.db.QueryRowContext(ctx, q, identifier).Scan(&accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return accountID, nil
}
