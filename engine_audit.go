package sessiongate

import (
	"context"
	"time"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventUserCreated        = "user_created"
	auditEventAccountConflict    = "account_conflict"
	auditEventSessionDisplaced   = "session_displaced"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventRefreshReuse       = "refresh_reuse_detected"
	auditEventValidateFailure    = "validate_failure"
	auditEventLogoutSession      = "logout_session"
	auditEventLogoutAll          = "logout_all"
	auditEventInvalidateAll      = "invalidate_all"
	auditEventFlagWriteEscalated = "invalidation_flag_escalated"
	auditEventCacheDegraded      = "cache_degraded"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, userID, sessionID string, success bool, opErr error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}

	e.audit.Emit(ctx, event)
}
