package sessiongate

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/calebforth/sessiongate/notify"
	"github.com/calebforth/sessiongate/store"
)

type testEnv struct {
	engine   *Engine
	store    *store.MemoryStore
	redis    *redis.Client
	mr       *miniredis.Miniredis
	notifier *notify.Channel
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Credential.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Credential.Issuer = "sessiongate-test"
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	memStore := store.NewMemoryStore()
	notifier := notify.NewChannel(16)

	engine, err := New().
		WithConfig(cfg).
		WithStore(memStore).
		WithRedis(rdb).
		WithNotifier(notifier).
		Build()
	if err != nil {
		t.Fatalf("build engine failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{
		engine:   engine,
		store:    memStore,
		redis:    rdb,
		mr:       mr,
		notifier: notifier,
	}
}

func newTestEnvWithSink(t *testing.T, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	memStore := store.NewMemoryStore()
	notifier := notify.NewChannel(16)

	engine, err := New().
		WithConfig(cfg).
		WithStore(memStore).
		WithRedis(rdb).
		WithNotifier(notifier).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build engine failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{
		engine:   engine,
		store:    memStore,
		redis:    rdb,
		mr:       mr,
		notifier: notifier,
	}
}

func testProfile(name string) Profile {
	return Profile{
		ExternalID:  "ext-" + name,
		Email:       name + "@example.com",
		DisplayName: name,
		AvatarURL:   "https://avatars.example.com/" + name,
	}
}

func mustLogin(t *testing.T, env *testEnv, profile Profile) *LoginResult {
	t.Helper()

	result, err := env.engine.CreateSessionForLogin(context.Background(), profile)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return result
}

func sessionIDFromResult(t *testing.T, env *testEnv, result *LoginResult) string {
	t.Helper()

	claims, err := env.engine.codec.ParseAccess(result.Credentials.AccessToken)
	if err != nil {
		t.Fatalf("parse access credential failed: %v", err)
	}
	return claims.SessionID
}

func drainDisconnects(env *testEnv) []notify.Disconnect {
	var out []notify.Disconnect
	for {
		select {
		case event := <-env.notifier.Events():
			out = append(out, event)
		default:
			return out
		}
	}
}
