package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calebforth/sessiongate/notify"
	"github.com/calebforth/sessiongate/store"
)

// Logout invalidates the caller's session, or every session of the user
// when allDevices is set.
//
// Single-session logout is idempotent: repeating it succeeds with zero
// sessions invalidated. The invalidation flag is written before the
// durable flip in both modes; a flag write that fails its retry is
// escalated as [ErrInvalidationIncomplete] because a revoked session must
// not keep answering from the cache.
func (e *Engine) Logout(ctx context.Context, userID, sessionID string, allDevices bool) (*LogoutResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	if allDevices {
		count, err := e.invalidateAllSessions(ctx, userID, notify.ReasonLogout)
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricLogoutAll)
		e.emitAudit(ctx, auditEventLogoutAll, userID, "", true, nil, map[string]string{
			"sessions": fmt.Sprintf("%d", count),
		})
		return &LogoutResult{
			Message:             "logged out on all devices",
			SessionsInvalidated: count,
		}, nil
	}

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

	now := time.Now().UTC()

	if flagErr := e.flagInvalidRetry(ctx, sessionID); flagErr != nil {
		// Flip the durable row regardless, then escalate the stale flag.
		_, _ = e.store.InvalidateSession(ctx, sessionID, now)
		e.emitAudit(ctx, auditEventFlagWriteEscalated, userID, sessionID, false, flagErr, nil)
		return nil, fmt.Errorf("%w: %v", ErrInvalidationIncomplete, flagErr)
	}

	flipped, err := e.store.InvalidateSession(ctx, sessionID, now)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	count := 0
	if flipped {
		count = 1
		e.metricInc(MetricSessionInvalidated)
	}

	// The cached identity must not outlive the logout; a profile change
	// landed since login would otherwise serve stale until IdentityTTL.
	if err := e.cache.DeleteIdentity(ctx, userID); err != nil {
		e.cacheDegraded(ctx, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, userID, sessionID, true, nil, nil)

	return &LogoutResult{
		Message:             "logged out",
		SessionsInvalidated: count,
	}, nil
}
