package jwt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when no token value was presented.
	ErrMissingToken = errors.New("token missing")
	// ErrMalformedToken covers bad structure, bad signature, wrong algorithm,
	// wrong issuer and missing required claims.
	ErrMalformedToken = errors.New("token malformed")
	// ErrAccessTokenExpired is returned for a validly signed access token past its expiry.
	ErrAccessTokenExpired = errors.New("access token expired")
	// ErrRefreshTokenExpired is returned for a validly signed refresh token past its expiry.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// VerifyAccess checks signature, algorithm, issuer and expiry of an access
// token and returns its claims.
//
// Failures are classified as ErrMissingToken, ErrMalformedToken or
// ErrAccessTokenExpired. A validly signed token past its expiry is reported
// as expired unless another claim check also fails, in which case it is
// malformed.
func (j *Manager) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	parser := jwt.NewParser(j.parserOptions(true)...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, j.keyFunc(j.config.AccessKey))
	if err != nil {
		return nil, classify(err, ErrAccessTokenExpired)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}
	if claims.Email == "" || claims.Role == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing identity claim", ErrMalformedToken)
	}
	if claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, fmt.Errorf("%w: subject does not match user claim", ErrMalformedToken)
	}

	return claims, nil
}

// ParseRefresh checks signature, algorithm and expiry of a refresh token.
//
// Failures are classified as ErrMissingToken, ErrMalformedToken or
// ErrRefreshTokenExpired.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	parser := jwt.NewParser(j.parserOptions(false)...)
	claims := &RefreshClaims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, j.keyFunc(j.config.RefreshKey))
	if err != nil {
		err = classify(err, ErrRefreshTokenExpired)
		if !errors.Is(err, ErrRefreshTokenExpired) {
			return nil, err
		}
	} else if !token.Valid {
		return nil, ErrMalformedToken
	}
	// Checked on expired tokens too, so an access token signed with the
	// refresh key never reads as an expired refresh token.
	if claims.Subject != "" || claims.Issuer != "" {
		return nil, fmt.Errorf("%w: refresh token carries identity claims", ErrMalformedToken)
	}
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// VerifyRefresh reports whether tokenStr is a validly signed, unexpired refresh token.
func (j *Manager) VerifyRefresh(tokenStr string) bool {
	_, err := j.ParseRefresh(tokenStr)
	return err == nil
}

func (j *Manager) parserOptions(withIssuer bool) []jwt.ParserOption {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if withIssuer {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	return options
}

func (j *Manager) keyFunc(key []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return key, nil
	}
}

// claimFailures outrank expiry. The validator joins every claim error, so a
// token that is both expired and wrongly issued must still read as malformed.
var claimFailures = []error{
	jwt.ErrTokenInvalidIssuer,
	jwt.ErrTokenInvalidAudience,
	jwt.ErrTokenInvalidSubject,
	jwt.ErrTokenNotValidYet,
	jwt.ErrTokenUsedBeforeIssued,
	jwt.ErrTokenRequiredClaimMissing,
}

// classify maps parser errors onto the verifier taxonomy. The parser only
// validates claims after the signature checks out, so an expiry error
// implies an authentic token.
func classify(err error, expired error) error {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	for _, target := range claimFailures {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}
	return fmt.Errorf("%w: %v", expired, err)
}
