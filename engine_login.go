package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calebforth/sessiongate/cache"
	"github.com/calebforth/sessiongate/notify"
	"github.com/calebforth/sessiongate/store"
)

// CreateSessionForLogin turns a verified upstream profile into a local
// session with a fresh credential pair.
//
// The user row is found by external id, then by email. A known email
// under a different external id is an account conflict, never a silent
// merge. Mutable profile fields are refreshed when they drifted. When a
// session cap is configured, the oldest sessions are displaced before the
// new one is created.
func (e *Engine) CreateSessionForLogin(ctx context.Context, profile Profile) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if profile.ExternalID == "" || profile.Email == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidProfile
	}

	now := time.Now().UTC()

	user, isNew, err := e.findOrCreateUser(ctx, profile)
	if err != nil {
		if errors.Is(err, ErrAccountConflict) {
			e.metricInc(MetricAccountConflict)
			e.emitAudit(ctx, auditEventAccountConflict, "", "", false, err, map[string]string{
				"external_id": profile.ExternalID,
			})
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, "", "", false, err, nil)
		return nil, err
	}
	if isNew {
		e.metricInc(MetricUserCreated)
		e.emitAudit(ctx, auditEventUserCreated, user.ID, "", true, nil, nil)
	}

	if err := e.enforceSessionCap(ctx, user.ID, now); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, user.ID, "", false, err, nil)
		return nil, err
	}

	session, err := e.store.CreateSession(ctx, user.ID, now, now.Add(e.config.Credential.RefreshTTL))
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, user.ID, "", false, err, nil)
		return nil, err
	}

	creds, refreshHash, err := e.mintCredentials(user.ID, session.ID, now)
	if err == nil {
		err = e.store.SetRefreshHash(ctx, session.ID, refreshHash, now)
	}
	if err != nil {
		// The half-created session must not stay usable.
		_, _ = e.store.InvalidateSession(ctx, session.ID, now)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, user.ID, session.ID, false, err, nil)
		return nil, err
	}

	identity := identityFromUser(user)
	if err := e.cache.SetIdentity(ctx, cacheIdentity(identity), e.config.Cache.IdentityTTL); err != nil {
		e.cacheDegraded(ctx, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, user.ID, session.ID, true, nil, map[string]string{
		"new_user": fmt.Sprintf("%t", isNew),
	})

	return &LoginResult{
		User:        identity,
		Credentials: *creds,
		IsNewUser:   isNew,
	}, nil
}

func (e *Engine) findOrCreateUser(ctx context.Context, profile Profile) (*store.User, bool, error) {
	user, err := e.store.UserByExternalID(ctx, profile.ExternalID)
	switch {
	case err == nil:
		if user.DisplayName != profile.DisplayName || user.AvatarURL != profile.AvatarURL {
			updated, uerr := e.store.UpdateUserProfile(ctx, user.ID, profile.DisplayName, profile.AvatarURL)
			if uerr != nil {
				return nil, false, uerr
			}
			user = updated
		}
		return user, false, nil
	case !errors.Is(err, store.ErrUserNotFound):
		return nil, false, err
	}

	existing, err := e.store.UserByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if existing.ExternalID != profile.ExternalID {
			return nil, false, ErrAccountConflict
		}
		return existing, false, nil
	case !errors.Is(err, store.ErrUserNotFound):
		return nil, false, err
	}

	user, err = e.store.CreateUser(ctx, store.NewUser{
		ExternalID:  profile.ExternalID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			// Lost a creation race; the winner's row serves this login.
			if winner, rerr := e.store.UserByExternalID(ctx, profile.ExternalID); rerr == nil {
				return winner, false, nil
			}
			return nil, false, ErrAccountConflict
		}
		return nil, false, err
	}
	return user, true, nil
}

// enforceSessionCap displaces the oldest active sessions so that after
// the incoming session is created, the user holds at most the configured
// maximum.
func (e *Engine) enforceSessionCap(ctx context.Context, userID string, now time.Time) error {
	limit := e.config.Session.MaxSessionsPerUser
	if limit <= 0 {
		return nil
	}

	active, err := e.store.ActiveSessionsForUser(ctx, userID, now)
	if err != nil {
		return err
	}

	overflow := len(active) - limit + 1
	if overflow <= 0 {
		return nil
	}
	if overflow > len(active) {
		overflow = len(active)
	}

	displaced, err := e.invalidateSessions(ctx, userID, active[:overflow], notify.ReasonNewLogin)
	if err != nil {
		return err
	}
	for i := 0; i < displaced; i++ {
		e.metricInc(MetricSessionDisplaced)
	}
	e.emitAudit(ctx, auditEventSessionDisplaced, userID, "", true, nil, map[string]string{
		"displaced": fmt.Sprintf("%d", displaced),
	})
	return nil
}

func identityFromUser(user *store.User) Identity {
	return Identity{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	}
}

func cacheIdentity(identity Identity) cache.Identity {
	return cache.Identity{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
	}
}
