// Package store persists refresh-token records.
//
// Three backends implement Store: MemoryStore for tests and single-process
// embedding, RedisStore built on Lua compare-and-delete scripts, and
// PostgresStore built on a single transaction per rotation. All of them key
// records by the SHA-256 digest of the token and never hold the token itself.
//
// Records are retained for a configurable period past their expiry so a
// caller can still find them after the token stops verifying.
package store
