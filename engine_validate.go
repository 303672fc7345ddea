package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calebforth/sessiongate/store"
)

// ValidateSession answers whether the (user, session) pair may
// authenticate, returning the user identity when it may.
//
// The cache is consulted first: an invalidation flag short-circuits to
// invalid without a store read, and a cached identity answers the happy
// path. Everything else falls through to the durable store. A failing
// cache degrades to the store; it can never produce a false valid.
func (e *Engine) ValidateSession(ctx context.Context, userID, sessionID string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	if userID == "" || sessionID == "" {
		e.metricInc(MetricValidateFailure)
		return nil, ErrSessionInvalid
	}

	flagged, flagErr := e.cache.SessionInvalid(ctx, sessionID)
	if flagErr != nil {
		e.cacheDegraded(ctx, flagErr)
	} else if flagged {
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventValidateFailure, userID, sessionID, false, ErrSessionInvalid, nil)
		return nil, ErrSessionInvalid
	}

	// The identity cache may only answer when the flag check worked;
	// otherwise a flagged session could ride a cached identity to a false
	// valid.
	if flagErr == nil {
		identity, ok, err := e.cache.Identity(ctx, userID)
		if err != nil {
			e.cacheDegraded(ctx, err)
		} else if ok {
			e.metricInc(MetricCacheHit)
			e.metricInc(MetricValidateSuccess)
			return &Identity{
				ID:          identity.ID,
				Email:       identity.Email,
				DisplayName: identity.DisplayName,
				AvatarURL:   identity.AvatarURL,
			}, nil
		} else {
			e.metricInc(MetricCacheMiss)
		}
	}

	identity, err := e.validateAgainstStore(ctx, userID, sessionID)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventValidateFailure, userID, sessionID, false, err, nil)
		return nil, err
	}
	e.metricInc(MetricValidateSuccess)
	return identity, nil
}

func (e *Engine) validateAgainstStore(ctx context.Context, userID, sessionID string) (*Identity, error) {
	now := time.Now().UTC()

	session, err := e.store.SessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.UserID != userID {
		return nil, ErrSessionInvalid
	}
	if !session.IsValid || session.DeletedAt != nil {
		return nil, ErrSessionInvalid
	}
	if !now.Before(session.ExpiresAt) {
		_, _ = e.store.InvalidateSession(ctx, session.ID, now)
		e.flagInvalidBestEffort(ctx, session.ID)
		return nil, ErrSessionExpired
	}

	user, err := e.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	identity := identityFromUser(user)
	if err := e.cache.SetIdentity(ctx, cacheIdentity(identity), e.config.Cache.IdentityTTL); err != nil {
		e.cacheDegraded(ctx, err)
	}
	return &identity, nil
}

// Authenticate is the token-validation guard: it verifies an access
// credential and then runs [Engine.ValidateSession] on its claims.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	claims, err := e.codec.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
	}
	return e.ValidateSession(ctx, claims.UserID, claims.SessionID)
}
