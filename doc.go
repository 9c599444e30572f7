// Package tokenauth issues and rotates JWT access/refresh token pairs.
//
// Access tokens are short-lived, self-contained and never stored. Refresh
// tokens are signed with a separate key and backed by a record in a refresh
// store; presenting one to [Engine.Refresh] atomically replaces its record
// with a new one, so each refresh token can be redeemed at most once.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([Principal], [TokenPair], [AuthResult]). Flow
// orchestration, rate limiting, audit dispatch and metrics live under
// internal/. Token encoding lives in jwt/ and persistence in store/.
//
// # What this package must NOT do
//
//   - Store plaintext refresh tokens. Stores key records by token digest.
//   - Perform I/O outside of Engine methods (Build only allocates).
//   - Import any sub-package that re-imports tokenauth (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path and makes no store round-trip. Refresh,
// IssueTokens and Logout make one or two store round-trips per call.
package tokenauth
