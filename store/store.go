package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned by user lookups with no matching row.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser marks a uniqueness violation on external id or email.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrSessionNotFound is returned by session lookups with no matching row.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionInvalid marks a session already flipped invalid or deleted.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionExpired marks a session past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrHashMismatch is returned by RotateRefreshHash when the provided
	// hash does not match the stored one. Callers treat this as credential
	// reuse.
	ErrHashMismatch = errors.New("refresh hash mismatch")
	// ErrUnavailable wraps infrastructure failures (connection refused,
	// timeouts) so callers can distinguish them from domain outcomes.
	ErrUnavailable = errors.New("session store unavailable")
)

// NewUser is the input for CreateUser.
type NewUser struct {
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

// Store is the durable persistence boundary for users and sessions.
//
// RotateRefreshHash is the serialization point for refresh rotation:
// implementations must guarantee that of N concurrent calls presenting the
// same hash, exactly one observes a match and swaps it. The hash compare
// must be constant-time.
//
// ActiveSessionsForUser returns usable sessions ordered oldest first, which
// is the displacement order under a concurrent-session cap.
type Store interface {
	CreateUser(ctx context.Context, input NewUser) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	UserByExternalID(ctx context.Context, externalID string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserProfile(ctx context.Context, userID, displayName, avatarURL string) (*User, error)

	CreateSession(ctx context.Context, userID string, now, expiresAt time.Time) (*Session, error)
	SessionByID(ctx context.Context, sessionID string) (*Session, error)
	SetRefreshHash(ctx context.Context, sessionID string, hash [32]byte, now time.Time) error
	RotateRefreshHash(ctx context.Context, sessionID string, provided, next [32]byte, now time.Time) (*Session, error)
	InvalidateSession(ctx context.Context, sessionID string, now time.Time) (bool, error)
	InvalidateSessions(ctx context.Context, sessionIDs []string, now time.Time) (int, error)
	ActiveSessionsForUser(ctx context.Context, userID string, now time.Time) ([]*Session, error)
}
