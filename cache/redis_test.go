package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	cache, err := NewRedis(client)
	if err != nil {
		t.Fatalf("new redis cache failed: %v", err)
	}
	return cache, mr
}

func TestFlagSessionInvalid(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	flagged, err := cache.SessionInvalid(ctx, "s1")
	if err != nil || flagged {
		t.Fatalf("fresh session should not be flagged: %v, %v", flagged, err)
	}

	if err := cache.FlagSessionInvalid(ctx, "s1", time.Hour); err != nil {
		t.Fatalf("flag failed: %v", err)
	}
	flagged, err = cache.SessionInvalid(ctx, "s1")
	if err != nil || !flagged {
		t.Fatalf("expected session flagged: %v, %v", flagged, err)
	}
	if !mr.Exists("sessionInvalid:s1") {
		t.Fatal("expected flag key in redis")
	}

	// Flagging is idempotent.
	if err := cache.FlagSessionInvalid(ctx, "s1", time.Hour); err != nil {
		t.Fatalf("repeat flag failed: %v", err)
	}

	if err := cache.FlagSessionInvalid(ctx, "s2", 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestFlagExpiresWithTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.FlagSessionInvalid(ctx, "s1", time.Minute); err != nil {
		t.Fatalf("flag failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	flagged, err := cache.SessionInvalid(ctx, "s1")
	if err != nil || flagged {
		t.Fatalf("flag should have expired: %v, %v", flagged, err)
	}
}

func TestIdentityRoundtrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	want := Identity{
		ID:          "u1",
		Email:       "alice@example.com",
		DisplayName: "alice",
		AvatarURL:   "https://avatars.example.com/alice",
	}
	if err := cache.SetIdentity(ctx, want, time.Hour); err != nil {
		t.Fatalf("set identity failed: %v", err)
	}

	got, hit, err := cache.Identity(ctx, "u1")
	if err != nil || !hit {
		t.Fatalf("expected hit: %v, %v", hit, err)
	}
	if *got != want {
		t.Fatalf("identity mismatch: %+v", got)
	}

	if err := cache.DeleteIdentity(ctx, "u1"); err != nil {
		t.Fatalf("delete identity failed: %v", err)
	}
	_, hit, err = cache.Identity(ctx, "u1")
	if err != nil || hit {
		t.Fatalf("expected miss after delete: %v, %v", hit, err)
	}
}

func TestIdentityMissOnUnknownUser(t *testing.T) {
	cache, _ := newTestCache(t)

	identity, hit, err := cache.Identity(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("miss must not be an error: %v", err)
	}
	if hit || identity != nil {
		t.Fatalf("expected clean miss, got %+v", identity)
	}
}

func TestIdentityCorruptEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t)

	if err := mr.Set("userIdentity:u1", "{not json"); err != nil {
		t.Fatalf("seed corrupt entry failed: %v", err)
	}

	_, hit, err := cache.Identity(context.Background(), "u1")
	if err != nil {
		t.Fatalf("corrupt entry must not be an error: %v", err)
	}
	if hit {
		t.Fatal("corrupt entry must read as a miss")
	}
}

func TestSetIdentityRequiresID(t *testing.T) {
	cache, _ := newTestCache(t)

	if err := cache.SetIdentity(context.Background(), Identity{}, time.Hour); err == nil {
		t.Fatal("expected error for identity without id")
	}
}

func TestOutageWrapsUnavailable(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	mr.SetError("cache down")
	defer mr.SetError("")

	if err := cache.FlagSessionInvalid(ctx, "s1", time.Hour); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from flag write, got %v", err)
	}
	if _, err := cache.SessionInvalid(ctx, "s1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from flag read, got %v", err)
	}
	if _, _, err := cache.Identity(ctx, "u1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from identity read, got %v", err)
	}
	if err := cache.DeleteIdentity(ctx, "u1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from identity delete, got %v", err)
	}
}

func TestNopCacheAlwaysMisses(t *testing.T) {
	var nop Nop
	ctx := context.Background()

	if err := nop.FlagSessionInvalid(ctx, "s1", time.Hour); err != nil {
		t.Fatalf("nop flag failed: %v", err)
	}
	flagged, err := nop.SessionInvalid(ctx, "s1")
	if err != nil || flagged {
		t.Fatalf("nop must never report a flag: %v, %v", flagged, err)
	}
	if err := nop.SetIdentity(ctx, Identity{ID: "u1"}, time.Hour); err != nil {
		t.Fatalf("nop set identity failed: %v", err)
	}
	_, hit, err := nop.Identity(ctx, "u1")
	if err != nil || hit {
		t.Fatalf("nop must always miss: %v, %v", hit, err)
	}
}
