package sessiongate

import (
	"context"
	"errors"
	"testing"
)

func TestLogoutSingleSession(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	profile := testProfile("alice")
	first := mustLogin(t, env, profile)
	second := mustLogin(t, env, profile)
	drainDisconnects(env)

	firstSession := sessionIDFromResult(t, env, first)
	secondSession := sessionIDFromResult(t, env, second)

	result, err := env.engine.Logout(ctx, first.User.ID, firstSession, false)
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if result.SessionsInvalidated != 1 {
		t.Fatalf("expected one session invalidated, got %d", result.SessionsInvalidated)
	}

	if _, err := env.engine.ValidateSession(ctx, first.User.ID, firstSession); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected logged-out session invalid, got %v", err)
	}
	if _, err := env.engine.ValidateSession(ctx, second.User.ID, secondSession); err != nil {
		t.Fatalf("other session should survive single logout: %v", err)
	}
	if !env.mr.Exists("sessionInvalid:" + firstSession) {
		t.Fatal("expected invalidation flag after logout")
	}

	// Single-session logout emits no per-user disconnect; only the
	// all-devices path does.
	if events := drainDisconnects(env); len(events) != 0 {
		t.Fatalf("unexpected disconnect signals: %+v", events)
	}
}

func TestLogoutEvictsCachedIdentity(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	login := mustLogin(t, env, testProfile("gwen"))
	sessionID := sessionIDFromResult(t, env, login)

	if !env.mr.Exists("userIdentity:" + login.User.ID) {
		t.Fatal("expected identity cache warmed by login")
	}

	if _, err := env.engine.Logout(ctx, login.User.ID, sessionID, false); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if env.mr.Exists("userIdentity:" + login.User.ID) {
		t.Fatal("expected identity cache evicted by single-session logout")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	login := mustLogin(t, env, testProfile("bob"))
	sessionID := sessionIDFromResult(t, env, login)

	if _, err := env.engine.Logout(ctx, login.User.ID, sessionID, false); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	repeat, err := env.engine.Logout(ctx, login.User.ID, sessionID, false)
	if err != nil {
		t.Fatalf("repeated logout should succeed: %v", err)
	}
	if repeat.SessionsInvalidated != 0 {
		t.Fatalf("repeated logout should invalidate nothing, got %d", repeat.SessionsInvalidated)
	}
}

func TestLogoutRejectsForeignSession(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	alice := mustLogin(t, env, testProfile("alice"))
	bob := mustLogin(t, env, testProfile("bob"))
	aliceSession := sessionIDFromResult(t, env, alice)

	if _, err := env.engine.Logout(ctx, bob.User.ID, aliceSession, false); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected foreign logout rejected, got %v", err)
	}
	if _, err := env.engine.ValidateSession(ctx, alice.User.ID, aliceSession); err != nil {
		t.Fatalf("alice's session should be untouched: %v", err)
	}
}

func TestLogoutUnknownSession(t *testing.T) {
	env := newTestEnv(t, testConfig())

	login := mustLogin(t, env, testProfile("carol"))

	_, err := env.engine.Logout(context.Background(), login.User.ID, "01HZZZZZZZZZZZZZZZZZZZZZZZ", false)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLogoutAllDevices(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	profile := testProfile("dave")
	var sessions []string
	var userID string
	for i := 0; i < 3; i++ {
		result := mustLogin(t, env, profile)
		userID = result.User.ID
		sessions = append(sessions, sessionIDFromResult(t, env, result))
	}
	drainDisconnects(env)

	result, err := env.engine.Logout(ctx, userID, "", true)
	if err != nil {
		t.Fatalf("logout all failed: %v", err)
	}
	if result.SessionsInvalidated != 3 {
		t.Fatalf("expected 3 sessions invalidated, got %d", result.SessionsInvalidated)
	}

	for _, sessionID := range sessions {
		if _, err := env.engine.ValidateSession(ctx, userID, sessionID); !errors.Is(err, ErrSessionInvalid) {
			t.Fatalf("expected session %s invalid, got %v", sessionID, err)
		}
	}

	events := drainDisconnects(env)
	if len(events) != 1 {
		t.Fatalf("expected exactly one disconnect signal, got %d", len(events))
	}
	if events[0].UserID != userID || string(events[0].Reason) != "logout" {
		t.Fatalf("unexpected disconnect event: %+v", events[0])
	}

	// Identity cache was evicted with the sessions.
	if env.mr.Exists("userIdentity:" + userID) {
		t.Fatal("expected identity cache evicted by logout-all")
	}
}

func TestLogoutAllWithNoActiveSessions(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	login := mustLogin(t, env, testProfile("erin"))
	sessionID := sessionIDFromResult(t, env, login)

	if _, err := env.engine.Logout(ctx, login.User.ID, sessionID, false); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	drainDisconnects(env)

	result, err := env.engine.Logout(ctx, login.User.ID, "", true)
	if err != nil {
		t.Fatalf("logout all failed: %v", err)
	}
	if result.SessionsInvalidated != 0 {
		t.Fatalf("expected zero sessions invalidated, got %d", result.SessionsInvalidated)
	}
	if events := drainDisconnects(env); len(events) != 0 {
		t.Fatalf("no signal expected without active sessions, got %+v", events)
	}
}

func TestLogoutEscalatesFlagWriteFailure(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	login := mustLogin(t, env, testProfile("frank"))
	sessionID := sessionIDFromResult(t, env, login)

	env.mr.SetError("cache down")
	_, err := env.engine.Logout(ctx, login.User.ID, sessionID, false)
	env.mr.SetError("")

	if !errors.Is(err, ErrInvalidationIncomplete) {
		t.Fatalf("expected ErrInvalidationIncomplete, got %v", err)
	}

	// The durable row was flipped even though the flag write failed.
	row, serr := env.store.SessionByID(ctx, sessionID)
	if serr != nil {
		t.Fatalf("session lookup failed: %v", serr)
	}
	if row.IsValid {
		t.Fatal("expected durable row flipped despite cache outage")
	}
}
