package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps cache infrastructure failures so callers can fall
// through to the durable store instead of failing the request.
var ErrUnavailable = errors.New("cache unavailable")

// Identity is the cached projection of a user row, enough to answer a
// validation without touching the durable store.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Cache holds two kinds of entries with opposite semantics.
//
// The invalidation flag (sessionInvalid:{sessionID}) is authoritative once
// set: a session carrying it is invalid regardless of the durable row. Its
// TTL must cover the longest refresh lifetime so the flag outlives every
// credential that could reference the session.
//
// The identity entry (userIdentity:{userID}) is a plain read-through cache:
// a miss or failure means "ask the store", never "invalid".
type Cache interface {
	FlagSessionInvalid(ctx context.Context, sessionID string, ttl time.Duration) error
	SessionInvalid(ctx context.Context, sessionID string) (bool, error)

	SetIdentity(ctx context.Context, identity Identity, ttl time.Duration) error
	Identity(ctx context.Context, userID string) (*Identity, bool, error)
	DeleteIdentity(ctx context.Context, userID string) error
}

// InvalidKey returns the invalidation flag key for a session.
func InvalidKey(sessionID string) string {
	return "sessionInvalid:" + sessionID
}

// IdentityKey returns the identity cache key for a user.
func IdentityKey(userID string) string {
	return "userIdentity:" + userID
}

// Nop is the cache used when no Redis client is wired. Every read misses
// and every write succeeds silently, so the engine always consults the
// durable store.
type Nop struct{}

func (Nop) FlagSessionInvalid(context.Context, string, time.Duration) error { return nil }

func (Nop) SessionInvalid(context.Context, string) (bool, error) { return false, nil }

func (Nop) SetIdentity(context.Context, Identity, time.Duration) error { return nil }

func (Nop) Identity(context.Context, string) (*Identity, bool, error) { return nil, false, nil }

func (Nop) DeleteIdentity(context.Context, string) error { return nil }
