package flows

import (
	"errors"

	"github.com/MrEthical07/tokenauth/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureMalformed
	ValidateFailureExpired
)

// ValidateResult returns either claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.AccessClaims
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	VerifyAccess func(string) (*jwt.AccessClaims, error)
}

// RunValidate verifies an access token. No store is consulted; access tokens
// are valid until they expire.
func RunValidate(token string, deps ValidateDeps) ValidateResult {
	claims, err := deps.VerifyAccess(token)
	switch {
	case err == nil:
		return ValidateResult{Failure: ValidateFailureNone, Claims: claims}
	case errors.Is(err, jwt.ErrMissingToken):
		return ValidateResult{Failure: ValidateFailureMissing, Err: err}
	case errors.Is(err, jwt.ErrAccessTokenExpired):
		return ValidateResult{Failure: ValidateFailureExpired, Err: err}
	default:
		return ValidateResult{Failure: ValidateFailureMalformed, Err: err}
	}
}
