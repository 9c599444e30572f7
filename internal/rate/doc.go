// Package rate provides the Redis-backed refresh throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key layout
// under the configured prefix (default "rl"):
//   - <prefix>:r:<digest>  refresh attempts per refresh-token digest
//   - <prefix>:ri:<ip>     refresh attempts per client IP
//
// # What this package must NOT do
//
//   - Decide what happens when a caller is throttled; the engine maps
//     ErrRateLimited to its own error.
//   - Store plaintext tokens in key names.
package rate
