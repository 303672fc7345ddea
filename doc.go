// Package sessiongate manages the session lifecycle for users whose
// identity is proven by an upstream provider: login session creation with
// concurrent-session caps, JWT access/refresh credential issuance, atomic
// refresh rotation with theft detection, cache-first validation, and
// logout with real-time disconnect signaling.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessiongate is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (Profile, Identity, Credentials). Durable
// persistence lives behind [store.Store], the Redis layer behind
// [cache.Cache], and real-time signaling behind [notify.Notifier]; the
// engine orchestrates them and owns every security decision.
//
// # What this package must NOT do
//
//   - Talk to an identity provider. Callers hand the engine an
//     already-verified [Profile].
//   - Trust the cache toward validity. Invalidation flags short-circuit to
//     invalid; everything else falls through to the durable store.
//   - Block on the real-time layer. Notifier implementations absorb their
//     own backpressure.
//
// # Performance contract
//
// ValidateSession is the hot path. A warm call answers from Redis in two
// round-trips (flag check + identity read) without touching the durable
// store; only misses and cache outages pay the store read.
package sessiongate
