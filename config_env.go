package sessiongate

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/calebforth/sessiongate/token"
)

type envConfig struct {
	AccessTTL     time.Duration `env:"SESSIONGATE_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL    time.Duration `env:"SESSIONGATE_REFRESH_TTL" envDefault:"720h"`
	SigningMethod string        `env:"SESSIONGATE_SIGNING_METHOD" envDefault:"hs256"`
	SigningKey    string        `env:"SESSIONGATE_SIGNING_KEY"`
	PublicKey     string        `env:"SESSIONGATE_PUBLIC_KEY"`
	Issuer        string        `env:"SESSIONGATE_ISSUER"`
	Audience      string        `env:"SESSIONGATE_AUDIENCE"`
	Leeway        time.Duration `env:"SESSIONGATE_LEEWAY" envDefault:"30s"`

	MaxSessionsPerUser int `env:"SESSIONGATE_MAX_SESSIONS_PER_USER" envDefault:"0"`

	IdentityTTL  time.Duration `env:"SESSIONGATE_IDENTITY_CACHE_TTL" envDefault:"1h"`
	FlagTTLSlack time.Duration `env:"SESSIONGATE_FLAG_TTL_SLACK" envDefault:"24h"`

	AuditEnabled    bool `env:"SESSIONGATE_AUDIT_ENABLED" envDefault:"true"`
	AuditBufferSize int  `env:"SESSIONGATE_AUDIT_BUFFER" envDefault:"1024"`
	AuditDropIfFull bool `env:"SESSIONGATE_AUDIT_DROP_IF_FULL" envDefault:"true"`

	MetricsEnabled bool `env:"SESSIONGATE_METRICS_ENABLED" envDefault:"false"`
	LatencyEnabled bool `env:"SESSIONGATE_LATENCY_HISTOGRAMS" envDefault:"false"`
}

// ConfigFromEnv builds a Config from SESSIONGATE_* environment variables,
// falling back to the same defaults as [DefaultConfig]. Key material is
// taken verbatim; Ed25519 keys may be PEM-encoded.
func ConfigFromEnv() (Config, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg := defaultConfig()
	cfg.Credential.AccessTTL = e.AccessTTL
	cfg.Credential.RefreshTTL = e.RefreshTTL
	cfg.Credential.SigningMethod = token.SigningMethod(e.SigningMethod)
	cfg.Credential.PrivateKey = []byte(e.SigningKey)
	cfg.Credential.PublicKey = []byte(e.PublicKey)
	cfg.Credential.Issuer = e.Issuer
	cfg.Credential.Audience = e.Audience
	cfg.Credential.Leeway = e.Leeway
	cfg.Session.MaxSessionsPerUser = e.MaxSessionsPerUser
	cfg.Cache.IdentityTTL = e.IdentityTTL
	cfg.Cache.FlagTTLSlack = e.FlagTTLSlack
	cfg.Audit.Enabled = e.AuditEnabled
	cfg.Audit.BufferSize = e.AuditBufferSize
	cfg.Audit.DropIfFull = e.AuditDropIfFull
	cfg.Metrics.Enabled = e.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = e.LatencyEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
