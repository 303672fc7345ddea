package sessiongate

import (
	"context"
	"errors"
	"testing"

	"github.com/calebforth/sessiongate/store"
)

func TestValidateCacheMissMatchesCacheHit(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	login := mustLogin(t, env, testProfile("alice"))
	sessionID := sessionIDFromResult(t, env, login)

	warm, err := env.engine.ValidateSession(ctx, login.User.ID, sessionID)
	if err != nil {
		t.Fatalf("warm validation failed: %v", err)
	}

	// Drop every cache entry; the store fallback must answer identically.
	env.mr.FlushAll()

	cold, err := env.engine.ValidateSession(ctx, login.User.ID, sessionID)
	if err != nil {
		t.Fatalf("cold validation failed: %v", err)
	}
	if *warm != *cold {
		t.Fatalf("cache-miss verdict diverged: warm=%+v cold=%+v", warm, cold)
	}

	// The fallback re-warmed the identity cache.
	if !env.mr.Exists("userIdentity:" + login.User.ID) {
		t.Fatal("expected identity cache rewarmed by store fallback")
	}
}

func TestValidateInvalidationFlagIsSticky(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	login := mustLogin(t, env, testProfile("bob"))
	sessionID := sessionIDFromResult(t, env, login)

	// Flag the session while the durable row stays valid. The flag must
	// win regardless.
	if err := env.engine.flagInvalidRetry(ctx, sessionID); err != nil {
		t.Fatalf("flag write failed: %v", err)
	}

	if _, err := env.engine.ValidateSession(ctx, login.User.ID, sessionID); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected flagged session invalid, got %v", err)
	}

	row, err := env.store.SessionByID(ctx, sessionID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if !row.IsValid {
		t.Fatal("durable row should be untouched by the flag")
	}
}

func TestValidateFallsThroughOnCacheOutage(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	login := mustLogin(t, env, testProfile("carol"))
	sessionID := sessionIDFromResult(t, env, login)

	env.mr.SetError("cache down")

	identity, err := env.engine.ValidateSession(ctx, login.User.ID, sessionID)
	if err != nil {
		t.Fatalf("validation should degrade to the store: %v", err)
	}
	if identity.ID != login.User.ID {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	// An invalid session stays invalid during the outage; the cache can
	// never manufacture validity.
	env.mr.SetError("")
	if _, err := env.engine.Logout(ctx, login.User.ID, sessionID, false); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	env.mr.SetError("cache down")

	if _, err := env.engine.ValidateSession(ctx, login.User.ID, sessionID); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid during outage, got %v", err)
	}
	env.mr.SetError("")
}

func TestValidateRejectsWrongUser(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	alice := mustLogin(t, env, testProfile("alice"))
	bob := mustLogin(t, env, testProfile("bob"))
	aliceSession := sessionIDFromResult(t, env, alice)

	// Bob's identity is cached, so force the store path with a flush.
	env.mr.FlushAll()

	if _, err := env.engine.ValidateSession(ctx, bob.User.ID, aliceSession); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected cross-user validation rejected, got %v", err)
	}
}

func TestValidateUnknownSession(t *testing.T) {
	env := newTestEnv(t, testConfig())

	login := mustLogin(t, env, testProfile("dave"))
	env.mr.FlushAll()

	_, err := env.engine.ValidateSession(context.Background(), login.User.ID, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestValidateEmptyArguments(t *testing.T) {
	env := newTestEnv(t, testConfig())

	if _, err := env.engine.ValidateSession(context.Background(), "", ""); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestAuthenticateGuardsAccessCredential(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	login := mustLogin(t, env, testProfile("erin"))

	identity, err := env.engine.Authenticate(ctx, login.Credentials.AccessToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if identity.ID != login.User.ID {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	// A refresh credential must not pass the access guard.
	if _, err := env.engine.Authenticate(ctx, login.Credentials.RefreshToken); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("expected ErrCredentialInvalid for refresh credential, got %v", err)
	}

	if _, err := env.engine.Authenticate(ctx, "garbage"); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("expected ErrCredentialInvalid for garbage, got %v", err)
	}
}

func TestValidateStoreOnlyWithoutRedis(t *testing.T) {
	ctx := context.Background()

	engine, err := New().
		WithConfig(testConfig()).
		WithStore(store.NewMemoryStore()).
		Build()
	if err != nil {
		t.Fatalf("build store-only engine failed: %v", err)
	}
	t.Cleanup(engine.Close)

	result, err := engine.CreateSessionForLogin(ctx, testProfile("frank"))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := engine.codec.ParseAccess(result.Credentials.AccessToken)
	if err != nil {
		t.Fatalf("parse access failed: %v", err)
	}
	if _, err := engine.ValidateSession(ctx, result.User.ID, claims.SessionID); err != nil {
		t.Fatalf("store-only validation failed: %v", err)
	}
}
