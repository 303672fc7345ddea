package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calebforth/sessiongate/internal"
	"github.com/calebforth/sessiongate/notify"
	"github.com/calebforth/sessiongate/store"
)

// RefreshTokens rotates a refresh credential: the presented credential is
// atomically retired and a fresh access/refresh pair is issued for the
// same session.
//
// The store serializes the hash swap, so of N concurrent calls with the
// same credential exactly one succeeds. A hash mismatch means the
// credential was already rotated and is being replayed: every session of
// the user is invalidated and [ErrTokenReuseDetected] is returned.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (*Credentials, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	claims, err := e.codec.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, "", "", false, err, nil)
		return nil, fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
	}

	now := time.Now().UTC()

	session, err := e.store.SessionByID(ctx, claims.SessionID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, claims.UserID, claims.SessionID, false, err, nil)
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	switch {
	case session.UserID != claims.UserID:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, claims.UserID, claims.SessionID, false, ErrSessionInvalid, nil)
		return nil, ErrSessionInvalid
	case !session.IsValid || session.DeletedAt != nil:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, claims.UserID, claims.SessionID, false, ErrSessionInvalid, nil)
		return nil, ErrSessionInvalid
	case !now.Before(session.ExpiresAt):
		// Lazy expiry: flip the row and flag the cache on discovery.
		_, _ = e.store.InvalidateSession(ctx, session.ID, now)
		e.flagInvalidBestEffort(ctx, session.ID)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, claims.UserID, claims.SessionID, false, ErrSessionExpired, nil)
		return nil, ErrSessionExpired
	}

	creds, nextHash, err := e.mintCredentials(claims.UserID, claims.SessionID, now)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	providedHash := internal.HashCredential(refreshToken)
	_, err = e.store.RotateRefreshHash(ctx, claims.SessionID, providedHash, nextHash, now)
	switch {
	case err == nil:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, claims.UserID, claims.SessionID, true, nil, nil)
		return creds, nil

	case errors.Is(err, store.ErrHashMismatch):
		return nil, e.respondToReuse(ctx, claims.UserID, claims.SessionID)

	case errors.Is(err, store.ErrSessionNotFound):
		e.metricInc(MetricRefreshFailure)
		return nil, ErrSessionNotFound
	case errors.Is(err, store.ErrSessionInvalid):
		e.metricInc(MetricRefreshFailure)
		return nil, ErrSessionInvalid
	case errors.Is(err, store.ErrSessionExpired):
		e.flagInvalidBestEffort(ctx, claims.SessionID)
		e.metricInc(MetricRefreshFailure)
		return nil, ErrSessionExpired
	default:
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
}

// respondToReuse is the theft response: a replayed refresh credential
// proves the rotated credential lineage leaked, so every session of the
// user is torn down, whichever device holds it.
func (e *Engine) respondToReuse(ctx context.Context, userID, sessionID string) error {
	e.metricInc(MetricRefreshReuseDetected)
	e.emitAudit(ctx, auditEventRefreshReuse, userID, sessionID, false, ErrTokenReuseDetected, nil)

	if _, err := e.invalidateAllSessions(ctx, userID, notify.ReasonTokenTheft); err != nil {
		if errors.Is(err, ErrInvalidationIncomplete) {
			// Durable rows are flipped; the stale flags were already
			// escalated through audit. The caller still learns the
			// security outcome.
			return ErrTokenReuseDetected
		}
		return fmt.Errorf("%w: invalidating sessions: %v", ErrTokenReuseDetected, err)
	}
	return ErrTokenReuseDetected
}
