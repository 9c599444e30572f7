// Package middleware adapts tokenauth access-token validation to HTTP and gRPC.
//
// # Guards
//
//   - [Guard]: requires a valid bearer token, 401 otherwise.
//   - [Optional]: attaches the result when a token is present.
//   - [RequireRole]: Guard plus an allow-list of roles (403 on mismatch).
//   - [UnaryServerInterceptor], [StreamServerInterceptor]: gRPC equivalents
//     reading the "authorization" metadata key.
//
// Rejections carry the tokenauth error code: HTTP responses set the
// X-Auth-Error-Code header, gRPC errors use it as the status message with
// codes.Unauthenticated.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine.ValidateAccess).
//   - Touch the refresh store.
package middleware
