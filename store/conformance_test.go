package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRecord(token string) *Record {
	now := time.Now().Truncate(time.Second)
	return &Record{
		ID:           uuid.NewString(),
		AccountID:    7,
		AccountEmail: "a@x.com",
		Role:         "USER",
		Token:        token,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	}
}

func successor(old *Record, token string) *Record {
	next := newRecord(token)
	next.AccountID = old.AccountID
	next.AccountEmail = old.AccountEmail
	next.Role = old.Role
	return next
}

// runStoreConformance exercises the Store contract against one backend.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("save and get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := newRecord("R1")
		require.NoError(t, s.Save(ctx, rec))

		got, err := s.Get(ctx, "R1")
		require.NoError(t, err)
		require.Equal(t, rec.ID, got.ID)
		require.Equal(t, int64(7), got.AccountID)
		require.Equal(t, "a@x.com", got.AccountEmail)
		require.Equal(t, "USER", got.Role)
		require.Equal(t, "R1", got.Token)
		require.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save rejects incomplete record", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord("R1")
		rec.Role = ""
		require.ErrorIs(t, s.Save(context.Background(), rec), ErrInvalidRecord)
	})

	t.Run("save replaces token for same id", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := newRecord("R1")
		require.NoError(t, s.Save(ctx, rec))
		rec.Token = "R1b"
		require.NoError(t, s.Save(ctx, rec))

		_, err := s.Get(ctx, "R1")
		require.ErrorIs(t, err, ErrNotFound)
		got, err := s.Get(ctx, "R1b")
		require.NoError(t, err)
		require.Equal(t, rec.ID, got.ID)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := newRecord("R1")
		require.NoError(t, s.Save(ctx, rec))
		require.NoError(t, s.Delete(ctx, rec.ID))
		require.NoError(t, s.Delete(ctx, rec.ID))
		_, err := s.Get(ctx, "R1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rotate replaces record", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		old := newRecord("R1")
		require.NoError(t, s.Save(ctx, old))
		next := successor(old, "R2")

		require.NoError(t, s.Rotate(ctx, old, next))

		_, err := s.Get(ctx, "R1")
		require.ErrorIs(t, err, ErrNotFound)
		got, err := s.Get(ctx, "R2")
		require.NoError(t, err)
		require.Equal(t, next.ID, got.ID)
		require.Equal(t, old.AccountID, got.AccountID)
		require.Equal(t, old.AccountEmail, got.AccountEmail)
		require.Equal(t, old.Role, got.Role)

		require.NoError(t, s.Delete(ctx, old.ID))
		_, err = s.Get(ctx, "R2")
		require.NoError(t, err, "deleting the consumed id must not touch its successor")
	})

	t.Run("rotate missing", func(t *testing.T) {
		s := newStore(t)
		old := newRecord("R1")
		err := s.Rotate(context.Background(), old, successor(old, "R2"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rotate id mismatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		stored := newRecord("R1")
		require.NoError(t, s.Save(ctx, stored))

		stale := *stored
		stale.ID = uuid.NewString()
		err := s.Rotate(ctx, &stale, successor(stored, "R2"))
		require.ErrorIs(t, err, ErrConflict)

		_, err = s.Get(ctx, "R1")
		require.NoError(t, err, "failed rotation must leave the stored record intact")
		_, err = s.Get(ctx, "R2")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent rotate single winner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		old := newRecord("R1")
		require.NoError(t, s.Save(ctx, old))

		const workers = 16
		var (
			success atomic.Int64
			lost    atomic.Int64
			other   atomic.Int64
			wg      sync.WaitGroup
		)
		start := make(chan struct{})
		winners := make(chan string, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				next := successor(old, "R2-"+uuid.NewString())
				err := s.Rotate(ctx, old, next)
				switch {
				case err == nil:
					success.Add(1)
					winners <- next.Token
				case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
					lost.Add(1)
				default:
					other.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		close(winners)

		require.Equal(t, int64(1), success.Load())
		require.Equal(t, int64(workers-1), lost.Load())
		require.Zero(t, other.Load())

		_, err := s.Get(ctx, "R1")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, <-winners)
		require.NoError(t, err)
	})
}
