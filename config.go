package sessiongate

import (
	"errors"
	"time"

	"github.com/calebforth/sessiongate/token"
)

// Config is the root engine configuration. Zero value is not usable;
// start from [DefaultConfig] or [ConfigFromEnv] and override.
type Config struct {
	Credential CredentialConfig
	Session    SessionConfig
	Cache      CacheConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// CredentialConfig controls the JWT codec.
type CredentialConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod token.SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// SessionConfig controls session lifecycle policy.
type SessionConfig struct {
	// MaxSessionsPerUser caps concurrent sessions per user. 0 means
	// unlimited. 1 gives single-device semantics: every login displaces
	// the previous session.
	MaxSessionsPerUser int
}

// CacheConfig controls the Redis layer.
type CacheConfig struct {
	// IdentityTTL bounds how long a cached identity may serve validations
	// without a store read.
	IdentityTTL time.Duration
	// FlagTTLSlack is added to the refresh lifetime when setting
	// invalidation flags, so a flag always outlives the credentials that
	// could reference its session.
	FlagTTLSlack time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events under backpressure instead of blocking the
	// request path. Dropped events are counted.
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration: one-hour access
// credentials, thirty-day refresh credentials, unlimited sessions per
// user, audit enabled with a lossy buffer.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Credential: CredentialConfig{
			AccessTTL:     time.Hour,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: token.MethodHS256,
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			MaxSessionsPerUser: 0,
		},
		Cache: CacheConfig{
			IdentityTTL:  time.Hour,
			FlagTTLSlack: 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Credential.PrivateKey = append([]byte(nil), cfg.Credential.PrivateKey...)
	out.Credential.PublicKey = append([]byte(nil), cfg.Credential.PublicKey...)
	return out
}

// Validate checks invariants that would otherwise surface as runtime
// misbehavior. Key material is validated by the codec, not here.
func (c *Config) Validate() error {
	if c.Credential.AccessTTL <= 0 {
		return errors.New("Credential.AccessTTL must be positive")
	}
	if c.Credential.RefreshTTL <= c.Credential.AccessTTL {
		return errors.New("Credential.RefreshTTL must exceed AccessTTL")
	}
	if c.Credential.Leeway < 0 || c.Credential.Leeway > 2*time.Minute {
		return errors.New("Credential.Leeway out of range")
	}
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("Session.MaxSessionsPerUser must not be negative")
	}
	if c.Cache.IdentityTTL <= 0 {
		return errors.New("Cache.IdentityTTL must be positive")
	}
	if c.Cache.FlagTTLSlack < 0 {
		return errors.New("Cache.FlagTTLSlack must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

// flagTTL is the invalidation flag lifetime: at least as long as any
// outstanding refresh credential can live.
func (c *Config) flagTTL() time.Duration {
	return c.Credential.RefreshTTL + c.Cache.FlagTTLSlack
}
