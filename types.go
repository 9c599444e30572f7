package tokenauth

import "time"

// Principal is the identity embedded in access tokens and copied onto every
// stored refresh record.
type Principal struct {
	AccountID int64
	Email     string
	Role      string
}

// TokenPair is returned by IssueTokens and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// Rotated reports whether RefreshToken is new. It is false when a
	// degraded refresh returned the presented refresh token unchanged.
	Rotated bool
}

// AuthResult is the verified content of an access token.
type AuthResult struct {
	Principal Principal
	IssuedAt  time.Time
	ExpiresAt time.Time
}
