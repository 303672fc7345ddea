package store

import "time"

// User is the locally persisted account row. Identity is proven upstream;
// ExternalID links the row to the provider subject.
type User struct {
	ID          string
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Session is one authenticated device/browser context. RefreshHash holds
// the SHA-256 digest of the currently valid refresh credential; the
// credential string itself is never persisted.
type Session struct {
	ID          string
	UserID      string
	RefreshHash [32]byte
	IsValid     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
	DeletedAt   *time.Time
}

// Usable reports whether the session can still authenticate at the given
// instant. Expiry alone does not flip IsValid; callers flip the row when
// they discover an expired session.
func (s *Session) Usable(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.IsValid && s.DeletedAt == nil && now.Before(s.ExpiresAt)
}
