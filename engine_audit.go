package tokenauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenauth/jwt"
)

const (
	auditEventIssueSuccess       = "issue_success"
	auditEventIssueFailure       = "issue_failure"
	auditEventRefreshRotated     = "refresh_rotated"
	auditEventRefreshReissued    = "refresh_reissued"
	auditEventRefreshFailure     = "refresh_failure"
	auditEventRefreshRateLimited = "refresh_rate_limited"
	auditEventLogout             = "logout"
)

// AuditErrorCode is the snake_case error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrMissingToken   AuditErrorCode = "missing_token"
	auditErrInvalidToken   AuditErrorCode = "invalid_token"
	auditErrExpiredToken   AuditErrorCode = "expired_token"
	auditErrSessionMissing AuditErrorCode = "session_not_found"
	auditErrRateLimited    AuditErrorCode = "rate_limited"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrInvalidInput   AuditErrorCode = "invalid_principal"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	recordID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		RecordID:  recordID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, jwt.ErrMissingToken):
		return auditErrMissingToken
	case errors.Is(err, jwt.ErrAccessTokenExpired),
		errors.Is(err, jwt.ErrRefreshTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, jwt.ErrMalformedToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionMissing
	case errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrInvalidPrincipal):
		return auditErrInvalidInput
	default:
		return auditErrInternal
	}
}
