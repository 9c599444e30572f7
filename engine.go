package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
)

// Engine issues, refreshes, validates and revokes tokens.
//
// Engine instances are configured once through Builder.Build and are safe for
// concurrent use afterwards.
type Engine struct {
	config      Config
	jwtManager  *jwt.Manager
	store       store.Store
	rateLimiter *rate.Limiter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
	flows       flows.Deps
}

// Close drains and stops the audit dispatcher. It does not close the store
// or any client passed to the Builder.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

type pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Ping checks the refresh store. Stores without a remote backend report zero
// latency and no error.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	p, ok := e.store.(pinger)
	if !ok {
		return 0, nil
	}
	d, err := p.Ping(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return d, nil
}

// AccessTTL returns the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil || e.jwtManager == nil {
		return 0
	}
	return e.jwtManager.AccessTTL()
}

// IssueTokens mints an access/refresh pair for p and persists the refresh
// record. It is the hand-off point after a successful login.
func (e *Engine) IssueTokens(ctx context.Context, p Principal) (TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.Role) == "" {
		return TokenPair{}, ErrInvalidPrincipal
	}

	accountID := strconv.FormatInt(p.AccountID, 10)
	res := flows.RunIssue(ctx, jwt.Identity{
		AccountID: p.AccountID,
		Email:     p.Email,
		Role:      p.Role,
	}, e.flows.Issue)

	if res.Failure != flows.IssueFailureNone {
		var err error
		switch res.Failure {
		case flows.IssueFailureStore:
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
			e.logger.ErrorContext(ctx, "persist refresh record failed", "account_id", accountID, "error", res.Err)
		default:
			err = fmt.Errorf("%w: %v", ErrTokenIssueFailed, res.Err)
			e.logger.ErrorContext(ctx, "mint token failed", "account_id", accountID, "error", res.Err)
		}
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, accountID, "", err, nil)
		return TokenPair{}, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventIssueSuccess, true, accountID, res.Record.ID, nil, nil)

	return TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Rotated:      true,
	}, nil
}

// Refresh exchanges a refresh token for new tokens.
//
// A token that verifies is rotated: its record is replaced by a new one and
// both tokens in the returned pair are new. A token that fails verification
// is rejected unless Rotation.DegradedReissue is set, in which case a stored
// record for it yields a new access token and the same refresh token.
//
// Losing a concurrent rotation of the same token returns ErrSessionNotFound.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricRefreshLatency, time.Since(start))
		}()
	}

	if err := e.checkRefreshThrottle(ctx, refreshToken); err != nil {
		return TokenPair{}, err
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)
	if res.Failure != flows.RefreshFailureNone {
		return TokenPair{}, e.refreshFailed(ctx, res)
	}

	accountID := strconv.FormatInt(res.Record.AccountID, 10)
	if res.Path == flows.RefreshPathReissue {
		e.metricInc(MetricRefreshReissued)
		e.logger.InfoContext(ctx, "access token reissued without rotation",
			"account_id", accountID,
			"record_id", res.Record.ID,
			"reason", string(CodeOf(res.VerifyErr)),
		)
		e.emitAudit(ctx, auditEventRefreshReissued, true, accountID, res.Record.ID, nil, func() map[string]string {
			return map[string]string{
				"reason": strings.ToLower(string(CodeOf(res.VerifyErr))),
			}
		})
		return TokenPair{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			Rotated:      false,
		}, nil
	}

	e.metricInc(MetricRefreshRotated)
	e.clearRefreshThrottle(ctx, refreshToken)
	e.emitAudit(ctx, auditEventRefreshRotated, true, accountID, res.Next.ID, nil, func() map[string]string {
		return map[string]string{
			"previous_record_id": res.Record.ID,
		}
	})
	return TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Rotated:      true,
	}, nil
}

func (e *Engine) checkRefreshThrottle(ctx context.Context, refreshToken string) error {
	if e.rateLimiter == nil || refreshToken == "" {
		return nil
	}
	err := e.rateLimiter.CheckRefresh(ctx, store.HashToken(refreshToken), clientIPFromContext(ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRefreshRateLimited)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, "", "", ErrRefreshRateLimited, nil)
		return ErrRefreshRateLimited
	default:
		// The store remains authoritative for rotation; a throttle outage
		// only loses rate limiting.
		e.logger.WarnContext(ctx, "refresh throttle unavailable", "error", err)
		return nil
	}
}

// clearRefreshThrottle drops the attempt counter of a token that has just
// been rotated away. The per-IP window is left alone.
func (e *Engine) clearRefreshThrottle(ctx context.Context, refreshToken string) {
	if e.rateLimiter == nil {
		return
	}
	if err := e.rateLimiter.Reset(ctx, store.HashToken(refreshToken)); err != nil {
		e.logger.WarnContext(ctx, "refresh throttle reset failed", "error", err)
	}
}

func (e *Engine) refreshFailed(ctx context.Context, res flows.RefreshResult) error {
	var err error
	switch res.Failure {
	case flows.RefreshFailureMissing:
		err = ErrMissingToken
	case flows.RefreshFailureInvalid:
		err = res.Err
	case flows.RefreshFailureSessionNotFound:
		e.metricInc(MetricRefreshSessionNotFound)
		err = ErrSessionNotFound
	case flows.RefreshFailureRotationRace:
		e.metricInc(MetricRefreshRotationRace)
		err = ErrSessionNotFound
	case flows.RefreshFailureStore:
		e.logger.ErrorContext(ctx, "refresh store failed", "error", res.Err)
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	default:
		e.logger.ErrorContext(ctx, "mint token failed", "error", res.Err)
		err = fmt.Errorf("%w: %v", ErrTokenIssueFailed, res.Err)
	}

	e.metricInc(MetricRefreshFailure)
	var accountID, recordID string
	if res.Record != nil {
		accountID = strconv.FormatInt(res.Record.AccountID, 10)
		recordID = res.Record.ID
	}
	e.emitAudit(ctx, auditEventRefreshFailure, false, accountID, recordID, err, nil)
	return err
}

// ValidateAccess verifies an access token. It never consults the refresh
// store; an access token stays valid until it expires.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	res := flows.RunValidate(accessToken, e.flows.Validate)
	if res.Failure != flows.ValidateFailureNone {
		e.metricInc(MetricValidateFailure)
		if res.Failure == flows.ValidateFailureExpired {
			e.metricInc(MetricValidateExpired)
		}
		return nil, res.Err
	}
	e.metricInc(MetricValidateSuccess)

	claims := res.Claims
	out := &AuthResult{
		Principal: Principal{
			AccountID: claims.UserID,
			Email:     claims.Email,
			Role:      claims.Role,
		},
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Logout deletes the stored record for refreshToken. The token does not have
// to verify, and logging out an unknown token succeeds.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return ErrMissingToken
	}

	res := flows.RunLogout(ctx, refreshToken, e.flows.Logout)
	var accountID, recordID string
	if res.Record != nil {
		accountID = strconv.FormatInt(res.Record.AccountID, 10)
		recordID = res.Record.ID
	}
	if res.Err != nil {
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		e.logger.ErrorContext(ctx, "logout failed", "record_id", recordID, "error", res.Err)
		e.emitAudit(ctx, auditEventLogout, false, accountID, recordID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, accountID, recordID, nil, func() map[string]string {
		return map[string]string{
			"found": strconv.FormatBool(res.Record != nil),
		}
	})
	return nil
}
