package sessiongate

import (
	"context"
	"fmt"
	"time"

	"github.com/calebforth/sessiongate/cache"
	"github.com/calebforth/sessiongate/internal"
	"github.com/calebforth/sessiongate/notify"
	"github.com/calebforth/sessiongate/store"
	"github.com/calebforth/sessiongate/token"
)

// Engine orchestrates the session lifecycle across the credential codec,
// the durable store, the cache, and the real-time notifier. Construct it
// through [Builder.Build]; all methods are safe for concurrent use.
type Engine struct {
	config   Config
	store    store.Store
	cache    cache.Cache
	notifier notify.Notifier
	codec    *token.Codec
	audit    *auditDispatcher
	metrics  *Metrics
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.codec == nil {
		return ErrEngineNotReady
	}
	return nil
}

// Close drains the audit dispatcher. The engine must not be used after
// Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms. Exporters poll this.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

func (e *Engine) cacheDegraded(ctx context.Context, err error) {
	e.metricInc(MetricCacheDegraded)
	e.emitAudit(ctx, auditEventCacheDegraded, "", "", false, err, nil)
}

// mintCredentials issues a fresh access/refresh pair and returns the
// digest of the refresh credential for the caller to persist. Nothing is
// written here; login and refresh persist the digest through different
// store operations.
func (e *Engine) mintCredentials(userID, sessionID string, now time.Time) (*Credentials, [32]byte, error) {
	var hash [32]byte

	refresh, err := e.codec.IssueRefresh(userID, sessionID, internal.NewRotationID(), now)
	if err != nil {
		return nil, hash, err
	}
	access, err := e.codec.IssueAccess(userID, sessionID, now)
	if err != nil {
		return nil, hash, err
	}

	hash = internal.HashCredential(refresh)
	return &Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    e.config.Credential.AccessTTL,
		RefreshTTL:   e.config.Credential.RefreshTTL,
	}, hash, nil
}

// flagInvalidRetry writes the invalidation flag with one retry. The SET
// is idempotent so the retry is safe.
func (e *Engine) flagInvalidRetry(ctx context.Context, sessionID string) error {
	ttl := e.config.flagTTL()
	if err := e.cache.FlagSessionInvalid(ctx, sessionID, ttl); err != nil {
		return e.cache.FlagSessionInvalid(ctx, sessionID, ttl)
	}
	return nil
}

func (e *Engine) flagInvalidBestEffort(ctx context.Context, sessionID string) {
	if err := e.flagInvalidRetry(ctx, sessionID); err != nil {
		e.cacheDegraded(ctx, err)
	}
}

// invalidateSessions is the shared invalidation routine used by theft
// response, all-devices logout, and session-cap displacement.
//
// Ordering is load-bearing: flags go to the cache before the durable flip
// so no validator can observe flipped rows behind a still-clean cache.
// One disconnect signal is emitted per call, carrying the reason.
func (e *Engine) invalidateSessions(ctx context.Context, userID string, sessions []*store.Session, reason notify.Reason) (int, error) {
	if len(sessions) == 0 {
		return 0, nil
	}

	ttl := e.config.flagTTL()
	var flagErr error
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
		if err := e.cache.FlagSessionInvalid(ctx, session.ID, ttl); err != nil {
			if err = e.cache.FlagSessionInvalid(ctx, session.ID, ttl); err != nil {
				flagErr = err
			}
		}
	}

	now := time.Now().UTC()
	flipped, err := e.store.InvalidateSessions(ctx, ids, now)
	if err != nil {
		return 0, err
	}
	for i := 0; i < flipped; i++ {
		e.metricInc(MetricSessionInvalidated)
	}

	if err := e.cache.DeleteIdentity(ctx, userID); err != nil {
		e.cacheDegraded(ctx, err)
	}

	e.notifier.Disconnect(ctx, notify.Disconnect{UserID: userID, Reason: reason})
	e.metricInc(MetricDisconnectSignal)
	e.emitAudit(ctx, auditEventInvalidateAll, userID, "", flagErr == nil, flagErr, map[string]string{
		"reason":   string(reason),
		"sessions": fmt.Sprintf("%d", flipped),
	})

	if flagErr != nil {
		e.emitAudit(ctx, auditEventFlagWriteEscalated, userID, "", false, flagErr, nil)
		return flipped, fmt.Errorf("%w: %v", ErrInvalidationIncomplete, flagErr)
	}
	return flipped, nil
}

func (e *Engine) invalidateAllSessions(ctx context.Context, userID string, reason notify.Reason) (int, error) {
	sessions, err := e.store.ActiveSessionsForUser(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return e.invalidateSessions(ctx, userID, sessions, reason)
}
