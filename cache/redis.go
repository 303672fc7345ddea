package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Cache on a go-redis client.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) (*Redis, error) {
	if client == nil {
		return nil, errors.New("nil redis client")
	}
	return &Redis{client: client}, nil
}

func (r *Redis) FlagSessionInvalid(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("flag ttl must be positive")
	}
	if err := r.client.Set(ctx, InvalidKey(sessionID), "1", ttl).Err(); err != nil {
		return wrapInfra(err)
	}
	return nil
}

func (r *Redis) SessionInvalid(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, InvalidKey(sessionID)).Result()
	if err != nil {
		return false, wrapInfra(err)
	}
	return n > 0, nil
}

func (r *Redis) SetIdentity(ctx context.Context, identity Identity, ttl time.Duration) error {
	if identity.ID == "" {
		return errors.New("identity id required")
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, IdentityKey(identity.ID), data, ttl).Err(); err != nil {
		return wrapInfra(err)
	}
	return nil
}

func (r *Redis) Identity(ctx context.Context, userID string) (*Identity, bool, error) {
	data, err := r.client.Get(ctx, IdentityKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, wrapInfra(err)
	}

	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		// A corrupt entry is a miss; the store remains authoritative.
		return nil, false, nil
	}
	return &identity, true, nil
}

func (r *Redis) DeleteIdentity(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, IdentityKey(userID)).Err(); err != nil {
		return wrapInfra(err)
	}
	return nil
}

func wrapInfra(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
