// Package token implements the credential codec: signed JWT access and
// refresh credentials sharing one claims shape.
//
// Both kinds carry uid (user id) and sid (session id). A refresh
// credential additionally carries rid, a rotation id minted on every
// rotation, so the two kinds are distinguishable even though they share a
// signing key. The codec rejects a credential presented as the wrong kind.
//
// # Architecture boundaries
//
// The codec is stateless and performs no I/O. Session validity, refresh
// hash comparison, and invalidation flags are the engine's concern; a
// credential that parses here may still be rejected upstream.
package token
