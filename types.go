package sessiongate

import "time"

// Profile is the identity attested by the upstream provider. ExternalID
// and Email are required; DisplayName and AvatarURL refresh the local user
// row on every login.
type Profile struct {
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

// Identity is the engine's view of an authenticated user, returned by
// validation and embedded in [LoginResult].
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
}

// Credentials is an access/refresh pair for one session. TTLs are echoed
// so transport layers can set cookie lifetimes without re-parsing the
// tokens.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// LoginResult is returned by [Engine.CreateSessionForLogin].
type LoginResult struct {
	User        Identity
	Credentials Credentials
	IsNewUser   bool
}

// LogoutResult is returned by [Engine.Logout]. SessionsInvalidated counts
// durable rows flipped by this call; an idempotent repeat reports zero.
type LogoutResult struct {
	Message             string
	SessionsInvalidated int
}
