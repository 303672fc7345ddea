package sessiongate

import "errors"

var (
	// ErrCredentialInvalid covers credentials that fail parsing, signature
	// verification, or are presented as the wrong kind.
	ErrCredentialInvalid = errors.New("invalid credential")
	// ErrSessionNotFound is returned when the referenced session does not
	// exist in the durable store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionInvalid is returned when the session was invalidated, was
	// flagged in the cache, or does not belong to the presented user.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionExpired is returned when the session is past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenReuseDetected is returned when a refresh credential that was
	// already rotated is presented again. All sessions of the user have
	// been invalidated by the time the caller sees this error.
	ErrTokenReuseDetected = errors.New("refresh credential reuse detected")
	// ErrAccountConflict is returned when the verified email is already
	// linked to a different upstream identity.
	ErrAccountConflict = errors.New("email already linked to another identity")
	// ErrInvalidProfile is returned by login when the verified profile is
	// missing its external id or email.
	ErrInvalidProfile = errors.New("invalid verified profile")
	// ErrInvalidationIncomplete is returned when invalidation flag writes
	// failed after a retry. Durable rows are flipped regardless, but stale
	// cache entries may honor the sessions until the flags land.
	ErrInvalidationIncomplete = errors.New("session invalidation incomplete")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
