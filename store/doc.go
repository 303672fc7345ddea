// Package store defines the durable persistence boundary for users and
// sessions, with a mutex-guarded in-memory implementation and a
// PostgreSQL implementation backed by pgx.
//
// # Architecture boundaries
//
// The store is the source of truth for session validity. The cache layer
// in front of it may only short-circuit toward "invalid" (flags) or repeat
// what the store said (identity cache); it never overrides a store verdict
// toward valid.
//
// # What this package must NOT do
//
//   - Mint, parse, or hash credentials (the engine hashes; the store only
//     compares digests).
//   - Emit audit events or metrics.
package store
