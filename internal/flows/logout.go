package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenauth/store"
)

// LogoutStore finds and removes the record behind a refresh token.
type LogoutStore interface {
	Get(ctx context.Context, token string) (*store.Record, error)
	Delete(ctx context.Context, id string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store LogoutStore
}

// LogoutResult carries the removed record, if any, and the store error.
type LogoutResult struct {
	Record *store.Record
	Err    error
}

// RunLogout removes the record stored for refreshToken. The token is not
// verified, so an expired refresh token can still end its session. An unknown
// token is not an error.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	rec, err := deps.Store.Get(ctx, refreshToken)
	if errors.Is(err, store.ErrNotFound) {
		return LogoutResult{}
	}
	if err != nil {
		return LogoutResult{Err: err}
	}
	return LogoutResult{Record: rec, Err: deps.Store.Delete(ctx, rec.ID)}
}
