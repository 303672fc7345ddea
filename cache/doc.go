// Package cache implements the Redis layer in front of the durable store:
// session invalidation flags and a short-TTL identity cache.
//
// # Failure semantics
//
// Infrastructure errors are wrapped with [ErrUnavailable]. The engine
// degrades an unavailable cache to a store read on the validation path but
// escalates flag-write failures during theft response and logout, where a
// lost flag would keep a revoked session alive until the durable write is
// visible everywhere.
package cache
