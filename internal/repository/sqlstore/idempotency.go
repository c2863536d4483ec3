package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyDB)(nil)

// IdempotencyDB keeps Idempotency-Key reservations and their stored
// responses, keyed per owner.
//
// Times are written in UTC. SQLite keeps them as text, and Purge relies on
// text order matching time order.
type IdempotencyDB struct {
	db *DB
}

func (s *IdempotencyDB) Reserve(ctx context.Context, rec *repository.IdempotencyRecord) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.conn.Rebind(
		`INSERT INTO idempotency_keys (owner_id, idem_key, request_hash, status, status_code, response, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.OwnerID, rec.Key, rec.RequestHash, rec.Status, rec.StatusCode, rec.Response,
		rec.CreatedAt.UTC(), rec.ExpiresAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("idempotency key", rec.Key)
		}
		return fmt.Errorf("sqlstore: reserving idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyDB) Get(ctx context.Context, owner, key string) (*repository.IdempotencyRecord, error) {
	var rec repository.IdempotencyRecord
	err := s.db.conn.GetContext(ctx, &rec, s.db.conn.Rebind(
		`SELECT owner_id, idem_key, request_hash, status, status_code, response, created_at, expires_at
		 FROM idempotency_keys WHERE owner_id = ? AND idem_key = ?`),
		owner, key,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("idempotency key", key)
		}
		return nil, fmt.Errorf("sqlstore: getting idempotency key: %w", err)
	}
	return &rec, nil
}

func (s *IdempotencyDB) Complete(ctx context.Context, owner, key string, statusCode int, response []byte) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.conn.Rebind(
		`UPDATE idempotency_keys SET status = ?, status_code = ?, response = ?
		 WHERE owner_id = ? AND idem_key = ?`),
		repository.IdempotencyCompleted, statusCode, response, owner, key,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: completing idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyDB) Release(ctx context.Context, owner, key string) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.conn.Rebind(
		`DELETE FROM idempotency_keys WHERE owner_id = ? AND idem_key = ?`), owner, key)
	if err != nil {
		return fmt.Errorf("sqlstore: releasing idempotency key: %w", err)
	}
	return nil
}

// Purge deletes every key that expired before now and reports how many.
func (s *IdempotencyDB) Purge(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.conn.ExecContext(ctx, s.db.conn.Rebind(
		`DELETE FROM idempotency_keys WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlstore: purging idempotency keys: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	return n, nil
}
