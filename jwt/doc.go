// Package jwt mints and verifies the two token kinds used by tokenauth.
//
// Access tokens carry the account identity (subject, email, user id, role)
// and are signed with the access key. Refresh tokens carry only an expiry and
// a unique id and are signed with a separate refresh key, so neither kind
// verifies under the other's key.
//
// Verification failures are classified into ErrMissingToken,
// ErrMalformedToken, ErrAccessTokenExpired and ErrRefreshTokenExpired.
package jwt
