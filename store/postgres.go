package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore keeps records in the refresh_tokens table.
//
// Schema is managed by Migrate.
type PostgresStore struct {
	pool      *pgxpool.Pool
	retention time.Duration
	now       func() time.Time
}

// NewPostgresStore creates a Postgres-backed store. Records are returned by
// Get until retention has passed since their expiry.
func NewPostgresStore(pool *pgxpool.Pool, retention time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, retention: retention, now: time.Now}
}

// WithClock replaces the time source used for expiry and retention checks.
func (s *PostgresStore) WithClock(now func() time.Time) *PostgresStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Get loads the record for token.
func (s *PostgresStore) Get(ctx context.Context, token string) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, `
		SELECT id, account_id, account_email, role, created_at, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND expires_at > $2
	`, HashToken(token), s.now().Add(-s.retention)).Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.AccountEmail,
		&rec.Role,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec.Token = token
	return &rec, nil
}

// Save upserts rec by id.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, token_hash, account_id, account_email, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			account_id = EXCLUDED.account_id,
			account_email = EXCLUDED.account_email,
			role = EXCLUDED.role,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, rec.ID, HashToken(rec.Token), rec.AccountID, rec.AccountEmail, rec.Role, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the record with id. It is idempotent.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Rotate deletes old and inserts next inside one transaction. The DELETE takes
// the row lock, so a concurrent rotation of the same token blocks until this
// one commits and then finds nothing to delete. A row owned by another id is
// left in place.
func (s *PostgresStore) Rotate(ctx context.Context, old, next *Record) (err error) {
	if old == nil || old.Token == "" {
		return ErrInvalidRecord
	}
	if err := next.validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var ownerID string
	err = tx.QueryRow(ctx, `
		DELETE FROM refresh_tokens
		WHERE token_hash = $1
		RETURNING id
	`, HashToken(old.Token)).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ownerID != old.ID {
		return ErrConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (id, token_hash, account_id, account_email, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, next.ID, HashToken(next.Token), next.AccountID, next.AccountEmail, next.Role, next.CreatedAt, next.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// PurgeExpired deletes records whose expiry is before cutoff and reports how
// many were removed.
func (s *PostgresStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

// Ping reports the round-trip latency to Postgres.
func (s *PostgresStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.pool.Ping(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
