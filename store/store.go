package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for the presented token.
	ErrNotFound = errors.New("refresh record not found")
	// ErrConflict is returned when a rotation target exists but no longer
	// belongs to the expected record, or the replacement token is already taken.
	ErrConflict = errors.New("refresh record conflict")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("refresh store unavailable")
	// ErrInvalidRecord is returned when a record is missing required fields.
	ErrInvalidRecord = errors.New("invalid refresh record")
)

// Record is one issued refresh token and the identity it was issued for.
//
// Backends persist only HashToken(Token); Get fills Token from its argument.
type Record struct {
	ID           string
	AccountID    int64
	AccountEmail string
	Role         string
	Token        string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Store persists refresh records.
//
// Rotate is the only multi-step operation: it removes old, which must still
// exist under the same token and id, and makes next visible in a single
// atomic step. Of several concurrent rotations of one record exactly one
// succeeds; the rest get ErrNotFound or ErrConflict.
type Store interface {
	Get(ctx context.Context, token string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
	Rotate(ctx context.Context, old, next *Record) error
}

// HashToken returns the hex SHA-256 digest under which a token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *Record) validate() error {
	if r == nil || r.ID == "" || r.Token == "" || r.AccountEmail == "" || r.Role == "" || r.ExpiresAt.IsZero() {
		return ErrInvalidRecord
	}
	return nil
}

const minRecordTTL = time.Second

// retainFor reports how long a backend keeps rec: its remaining lifetime plus
// retention, never less than minRecordTTL.
func retainFor(rec *Record, retention time.Duration, now time.Time) time.Duration {
	ttl := rec.ExpiresAt.Sub(now) + retention
	if ttl < minRecordTTL {
		return minRecordTTL
	}
	return ttl
}
