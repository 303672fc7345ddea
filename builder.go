package sessiongate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/calebforth/sessiongate/cache"
	"github.com/calebforth/sessiongate/notify"
	"github.com/calebforth/sessiongate/store"
	"github.com/calebforth/sessiongate/token"
)

// Builder wires the engine's dependencies. A durable store is required;
// Redis, notifier, and audit sink are optional and fall back to no-op
// implementations.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	store     store.Store
	cache     cache.Cache
	notifier  notify.Notifier
	auditSink AuditSink

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the durable store. Required.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis wires the cache layer onto the given client. Without a Redis
// client (or an explicit cache) the engine runs store-only.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCache overrides the cache implementation. Takes precedence over
// WithRedis.
func (b *Builder) WithCache(c cache.Cache) *Builder {
	b.cache = c
	return b
}

func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, constructs the codec, and returns a
// ready engine. A builder may be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("durable store required")
	}

	codec, err := token.NewCodec(token.Config{
		AccessTTL:     cfg.Credential.AccessTTL,
		RefreshTTL:    cfg.Credential.RefreshTTL,
		SigningMethod: cfg.Credential.SigningMethod,
		PrivateKey:    cfg.Credential.PrivateKey,
		PublicKey:     cfg.Credential.PublicKey,
		Issuer:        cfg.Credential.Issuer,
		Audience:      cfg.Credential.Audience,
		Leeway:        cfg.Credential.Leeway,
	})
	if err != nil {
		return nil, err
	}

	c := b.cache
	if c == nil {
		if b.redis != nil {
			redisCache, err := cache.NewRedis(b.redis)
			if err != nil {
				return nil, err
			}
			c = redisCache
		} else {
			c = cache.Nop{}
		}
	}

	n := b.notifier
	if n == nil {
		n = notify.NoOp{}
	}

	b.built = true

	return &Engine{
		config:   cfg,
		store:    b.store,
		cache:    c,
		notifier: n,
		codec:    codec,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics),
	}, nil
}
