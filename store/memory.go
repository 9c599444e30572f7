package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store guarded by a single mutex.
type MemoryStore struct {
	mu        sync.Mutex
	byHash    map[string]Record
	byID      map[string]string
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore returns an empty store that keeps records for retention past expiry.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		byHash:    make(map[string]Record),
		byID:      make(map[string]string),
		retention: retention,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for expiry and retention checks.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Get returns the record for token.
func (s *MemoryStore) Get(ctx context.Context, token string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := HashToken(token)
	rec, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(rec.ExpiresAt.Add(s.retention)) {
		s.removeLocked(hash)
		return nil, ErrNotFound
	}
	rec.Token = token
	return &rec, nil
}

// Save inserts rec or replaces the record stored under the same token or id.
func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := HashToken(rec.Token)
	if prev, ok := s.byID[rec.ID]; ok && prev != hash {
		delete(s.byHash, prev)
	}
	if owner, ok := s.byHash[hash]; ok && owner.ID != rec.ID {
		delete(s.byID, owner.ID)
	}
	s.putLocked(hash, rec)
	return nil
}

// Delete removes the record with id. Missing records are not an error.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if hash, ok := s.byID[id]; ok {
		s.removeLocked(hash)
	}
	return nil
}

// Rotate replaces old with next under the store mutex.
func (s *MemoryStore) Rotate(ctx context.Context, old, next *Record) error {
	if old == nil || old.Token == "" {
		return ErrInvalidRecord
	}
	if err := next.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	oldHash := HashToken(old.Token)
	current, ok := s.byHash[oldHash]
	if !ok {
		return ErrNotFound
	}
	if current.ID != old.ID {
		return ErrConflict
	}
	nextHash := HashToken(next.Token)
	if _, taken := s.byHash[nextHash]; taken {
		return ErrConflict
	}

	s.removeLocked(oldHash)
	s.putLocked(nextHash, next)
	return nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

func (s *MemoryStore) putLocked(hash string, rec *Record) {
	stored := *rec
	stored.Token = ""
	s.byHash[hash] = stored
	s.byID[rec.ID] = hash
}

func (s *MemoryStore) removeLocked(hash string) {
	if rec, ok := s.byHash[hash]; ok {
		delete(s.byID, rec.ID)
	}
	delete(s.byHash, hash)
}
