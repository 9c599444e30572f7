package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound  int64 = 0
	rotateStatusRotated   int64 = 1
	rotateStatusMismatch  int64 = 2
	rotateStatusCollision int64 = 3
)

// KEYS: token key, id key. ARGV: hash, id, account_id, email, role,
// created_at, expires_at, ttl ms, token prefix, id prefix.
const saveRecordScript = `
local previous = redis.call("GET", KEYS[2])
if previous and previous ~= ARGV[1] then
  redis.call("DEL", ARGV[9] .. previous)
end
local owner = redis.call("HGET", KEYS[1], "id")
if owner and owner ~= ARGV[2] then
  redis.call("DEL", ARGV[10] .. owner)
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1],
  "id", ARGV[2], "account_id", ARGV[3], "email", ARGV[4], "role", ARGV[5],
  "created_at", ARGV[6], "expires_at", ARGV[7])
redis.call("PEXPIRE", KEYS[1], ARGV[8])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[8])
return 1
`

var saveRecordLua = redis.NewScript(saveRecordScript)

// KEYS: id key. ARGV: token prefix.
const deleteRecordScript = `
local hash = redis.call("GET", KEYS[1])
if not hash then
  return 0
end
redis.call("DEL", ARGV[1] .. hash)
redis.call("DEL", KEYS[1])
return 1
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// KEYS: old token key, old id key, next token key, next id key.
// ARGV: old id, next hash, next id, account_id, email, role, created_at,
// expires_at, ttl ms.
const rotateRecordScript = `
local owner = redis.call("HGET", KEYS[1], "id")
if not owner then
  return 0
end
if owner ~= ARGV[1] then
  return 2
end
if redis.call("EXISTS", KEYS[3]) == 1 then
  return 3
end

redis.call("DEL", KEYS[1])
redis.call("DEL", KEYS[2])

redis.call("HSET", KEYS[3],
  "id", ARGV[3], "account_id", ARGV[4], "email", ARGV[5], "role", ARGV[6],
  "created_at", ARGV[7], "expires_at", ARGV[8])
redis.call("PEXPIRE", KEYS[3], ARGV[9])
redis.call("SET", KEYS[4], ARGV[2], "PX", ARGV[9])
return 1
`

var rotateRecordLua = redis.NewScript(rotateRecordScript)

// RedisStore keeps each record in a hash keyed by token digest, plus an
// id-to-digest index used by Delete.
//
// Every mutation is a single Lua script, so rotation is a compare-and-delete
// that Redis executes atomically.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisStore creates a RedisStore under key namespace prefix. Records live
// for their remaining lifetime plus retention.
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

func (s *RedisStore) tokenPrefix() string { return s.prefix + ":t:" }
func (s *RedisStore) idPrefix() string    { return s.prefix + ":i:" }

func (s *RedisStore) tokenKey(hash string) string { return s.tokenPrefix() + hash }
func (s *RedisStore) idKey(id string) string      { return s.idPrefix() + id }

// WithClock replaces the time source used for expiry and retention checks.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Get loads the record for token.
//
//	Performance: 1 Redis HGETALL.
func (s *RedisStore) Get(ctx context.Context, token string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.tokenKey(HashToken(token))).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	rec, err := decodeRecord(fields)
	if err != nil {
		return nil, err
	}
	rec.Token = token
	return rec, nil
}

// Save upserts rec.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	hash := HashToken(rec.Token)
	ttl := retainFor(rec, s.retention, s.now())

	_, err := saveRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(hash), s.idKey(rec.ID)},
		hash,
		rec.ID,
		strconv.FormatInt(rec.AccountID, 10),
		rec.AccountEmail,
		rec.Role,
		rec.CreatedAt.Unix(),
		rec.ExpiresAt.Unix(),
		ttl.Milliseconds(),
		s.tokenPrefix(),
		s.idPrefix(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the record with id and its index entry. It is idempotent.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := deleteRecordLua.Run(ctx, s.redis, []string{s.idKey(id)}, s.tokenPrefix()).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Rotate atomically deletes old and stores next.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-delete).
func (s *RedisStore) Rotate(ctx context.Context, old, next *Record) error {
	if old == nil || old.Token == "" {
		return ErrInvalidRecord
	}
	if err := next.validate(); err != nil {
		return err
	}
	nextHash := HashToken(next.Token)
	ttl := retainFor(next, s.retention, s.now())

	result, err := rotateRecordLua.Run(
		ctx,
		s.redis,
		[]string{
			s.tokenKey(HashToken(old.Token)),
			s.idKey(old.ID),
			s.tokenKey(nextHash),
			s.idKey(next.ID),
		},
		old.ID,
		nextHash,
		next.ID,
		strconv.FormatInt(next.AccountID, 10),
		next.AccountEmail,
		next.Role,
		next.CreatedAt.Unix(),
		next.ExpiresAt.Unix(),
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch result {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrNotFound
	case rotateStatusMismatch, rotateStatusCollision:
		return ErrConflict
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", ErrUnavailable, result)
	}
}

// Ping reports the round-trip latency to Redis.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeRecord(fields map[string]string) (*Record, error) {
	accountID, err := strconv.ParseInt(fields["account_id"], 10, 64)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, fmt.Errorf("corrupt account_id: %w", err))
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, fmt.Errorf("corrupt created_at: %w", err))
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, fmt.Errorf("corrupt expires_at: %w", err))
	}
	return &Record{
		ID:           fields["id"],
		AccountID:    accountID,
		AccountEmail: fields["email"],
		Role:         fields["role"],
		CreatedAt:    time.Unix(created, 0),
		ExpiresAt:    time.Unix(expires, 0),
	}, nil
}
