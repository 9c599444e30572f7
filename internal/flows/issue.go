package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
)

// IssueFailureKind classifies issue flow failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureIssueAccess
	IssueFailureIssueRefresh
	IssueFailureStore
)

// IssueResult carries the minted pair and the persisted record.
type IssueResult struct {
	Failure      IssueFailureKind
	Err          error
	Record       *store.Record
	AccessToken  string
	RefreshToken string
}

// IssueStore persists the record minted with a new pair.
type IssueStore interface {
	Save(ctx context.Context, rec *store.Record) error
}

// IssueDeps captures issue flow dependencies.
type IssueDeps struct {
	IssueAccessToken  func(jwt.Identity) (string, error)
	IssueRefreshToken func() (string, time.Time, error)
	NewRecordID       func() string
	Now               func() time.Time
	Store             IssueStore
}

// RunIssue mints an access/refresh pair for id and persists the refresh
// record. Nothing is returned to the caller unless the record was saved.
func RunIssue(ctx context.Context, id jwt.Identity, deps IssueDeps) IssueResult {
	access, err := deps.IssueAccessToken(id)
	if err != nil {
		return IssueResult{Failure: IssueFailureIssueAccess, Err: err}
	}
	refresh, expiresAt, err := deps.IssueRefreshToken()
	if err != nil {
		return IssueResult{Failure: IssueFailureIssueRefresh, Err: err}
	}

	rec := &store.Record{
		ID:           deps.NewRecordID(),
		AccountID:    id.AccountID,
		AccountEmail: id.Email,
		Role:         id.Role,
		Token:        refresh,
		CreatedAt:    deps.Now(),
		ExpiresAt:    expiresAt,
	}
	if err := deps.Store.Save(ctx, rec); err != nil {
		return IssueResult{Failure: IssueFailureStore, Err: err, Record: rec}
	}

	return IssueResult{
		Failure:      IssueFailureNone,
		Record:       rec,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
