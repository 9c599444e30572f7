package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureInvalid
	RefreshFailureSessionNotFound
	RefreshFailureRotationRace
	RefreshFailureStore
	RefreshFailureIssueAccess
	RefreshFailureIssueRefresh
)

// RefreshPath reports which branch produced a successful result.
type RefreshPath int

const (
	RefreshPathNone RefreshPath = iota
	// RefreshPathRotate consumed the presented token and issued a new pair.
	RefreshPathRotate
	// RefreshPathReissue matched a token that failed verification and issued
	// only a new access token.
	RefreshPathReissue
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Path    RefreshPath
	Err     error
	// VerifyErr is the classified verification error of the presented token,
	// set when the reissue path was taken or considered.
	VerifyErr    error
	Record       *store.Record
	Next         *store.Record
	AccessToken  string
	RefreshToken string
}

// RefreshStore is the part of store.Store the refresh flow needs.
type RefreshStore interface {
	Get(ctx context.Context, token string) (*store.Record, error)
	Rotate(ctx context.Context, old, next *store.Record) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh      func(string) error
	IssueAccessToken  func(jwt.Identity) (string, error)
	IssueRefreshToken func() (string, time.Time, error)
	NewRecordID       func() string
	Now               func() time.Time
	DegradedReissue   bool
	Store             RefreshStore
}

// RunRefresh verifies refreshToken and either rotates it or, when it fails
// verification and degraded reissue is enabled, reissues an access token
// against its stored record.
//
// Every token is minted before the store is mutated, and rotation is a single
// store call, so a failure at any step leaves the store unchanged.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	verifyErr := deps.ParseRefresh(refreshToken)
	switch {
	case verifyErr == nil:
		return runRotate(ctx, refreshToken, deps)
	case errors.Is(verifyErr, jwt.ErrMissingToken):
		return RefreshResult{Failure: RefreshFailureMissing, Err: verifyErr}
	case !deps.DegradedReissue:
		return RefreshResult{Failure: RefreshFailureInvalid, Err: verifyErr, VerifyErr: verifyErr}
	default:
		return runReissue(ctx, refreshToken, verifyErr, deps)
	}
}

func runRotate(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	rec, err := deps.Store.Get(ctx, refreshToken)
	if err != nil {
		return lookupFailure(err, nil)
	}

	access, err := deps.IssueAccessToken(identityOf(rec))
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueAccess, Err: err, Record: rec}
	}
	refresh, expiresAt, err := deps.IssueRefreshToken()
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueRefresh, Err: err, Record: rec}
	}

	next := &store.Record{
		ID:           deps.NewRecordID(),
		AccountID:    rec.AccountID,
		AccountEmail: rec.AccountEmail,
		Role:         rec.Role,
		Token:        refresh,
		CreatedAt:    deps.Now(),
		ExpiresAt:    expiresAt,
	}

	if err := deps.Store.Rotate(ctx, rec, next); err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
			return RefreshResult{Failure: RefreshFailureRotationRace, Err: err, Record: rec}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Record: rec}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		Path:         RefreshPathRotate,
		Record:       rec,
		Next:         next,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

func runReissue(ctx context.Context, refreshToken string, verifyErr error, deps RefreshDeps) RefreshResult {
	rec, err := deps.Store.Get(ctx, refreshToken)
	if err != nil {
		return lookupFailure(err, verifyErr)
	}

	access, err := deps.IssueAccessToken(identityOf(rec))
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueAccess, Err: err, VerifyErr: verifyErr, Record: rec}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		Path:         RefreshPathReissue,
		VerifyErr:    verifyErr,
		Record:       rec,
		AccessToken:  access,
		RefreshToken: refreshToken,
	}
}

func lookupFailure(err, verifyErr error) RefreshResult {
	if errors.Is(err, store.ErrNotFound) {
		return RefreshResult{Failure: RefreshFailureSessionNotFound, Err: err, VerifyErr: verifyErr}
	}
	return RefreshResult{Failure: RefreshFailureStore, Err: err, VerifyErr: verifyErr}
}

func identityOf(rec *store.Record) jwt.Identity {
	return jwt.Identity{
		AccountID: rec.AccountID,
		Email:     rec.AccountEmail,
		Role:      rec.Role,
	}
}
