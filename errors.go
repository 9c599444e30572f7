package tokenauth

import (
	"errors"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
)

var (
	// ErrMissingToken is returned when no token was presented.
	ErrMissingToken = jwt.ErrMissingToken
	// ErrMalformedToken is returned for tokens with bad structure, signature,
	// algorithm, issuer or required claims.
	ErrMalformedToken = jwt.ErrMalformedToken
	// ErrAccessTokenExpired is returned for an authentic access token past its expiry.
	ErrAccessTokenExpired = jwt.ErrAccessTokenExpired
	// ErrRefreshTokenExpired is returned for an authentic refresh token past its
	// expiry when degraded reissue is disabled.
	ErrRefreshTokenExpired = jwt.ErrRefreshTokenExpired
	// ErrSessionNotFound is returned when no stored record matches the presented
	// refresh token, including when a concurrent rotation consumed it first.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshRateLimited is returned when the refresh throttle rejects a request.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrStoreUnavailable wraps refresh store failures.
	ErrStoreUnavailable = errors.New("refresh store unavailable")
	// ErrTokenIssueFailed is returned when minting a token fails.
	ErrTokenIssueFailed = errors.New("token issue failed")
	// ErrInvalidPrincipal is returned when a principal lacks email or role.
	ErrInvalidPrincipal = errors.New("invalid principal")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorCode is the outbound classification of an engine error.
type ErrorCode string

// Outbound error codes. Numbers are stable; token failures use the 13xx range.
const (
	CodeTokenNotFound       ErrorCode = "TOKEN_NOTFOUND"
	CodeTokenModulated      ErrorCode = "TOKEN_MODULATED"
	CodeAccessTokenExpired  ErrorCode = "ACCESS_TOKEN_EXPIRED"
	CodeRefreshTokenExpired ErrorCode = "REFRESH_TOKEN_EXPIRED"
	CodeInvalidSession      ErrorCode = "INVALID_SESSION"
	CodeRateLimited         ErrorCode = "RATE_LIMITED"
	CodeInternal            ErrorCode = "INTERNAL"
)

var errorCodeNumbers = map[ErrorCode]int{
	CodeTokenNotFound:       1300,
	CodeTokenModulated:      1301,
	CodeAccessTokenExpired:  1302,
	CodeRefreshTokenExpired: 1303,
	CodeInvalidSession:      1304,
	CodeRateLimited:         1429,
	CodeInternal:            1500,
}

var errorCodeMessages = map[ErrorCode]string{
	CodeTokenNotFound:       "authentication token not found",
	CodeTokenModulated:      "authentication token was tampered with or is malformed",
	CodeAccessTokenExpired:  "access token has expired",
	CodeRefreshTokenExpired: "refresh token has expired",
	CodeInvalidSession:      "refresh session is invalid",
	CodeRateLimited:         "too many refresh attempts",
	CodeInternal:            "internal authentication error",
}

// Number returns the stable numeric code.
func (c ErrorCode) Number() int {
	return errorCodeNumbers[c]
}

// Message returns a client-safe description.
func (c ErrorCode) Message() string {
	return errorCodeMessages[c]
}

// CodeOf classifies err. It returns the empty code for a nil error.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingToken):
		return CodeTokenNotFound
	case errors.Is(err, ErrAccessTokenExpired):
		return CodeAccessTokenExpired
	case errors.Is(err, ErrRefreshTokenExpired):
		return CodeRefreshTokenExpired
	case errors.Is(err, ErrMalformedToken):
		return CodeTokenModulated
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrConflict):
		return CodeInvalidSession
	case errors.Is(err, ErrRefreshRateLimited):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
