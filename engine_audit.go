package tokenpair

import (
	"context"
	"errors"
)

// emitAudit records one outcome. meta is evaluated only when auditing is
// on, so callers may build maps freely.
func (e *Engine) emitAudit(ctx context.Context, typ AuditEventType, ok bool, subject, tokenID string, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: typ,
		Subject:   subject,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   ok,
		Error:     auditErrorCode(err),
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	e.audit.Emit(ctx, ev)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return AuditCodeInvalidCredentials
	case errors.Is(err, ErrLoginThrottled):
		return AuditCodeThrottled
	case errors.Is(err, ErrMalformedToken):
		return AuditCodeMalformedToken
	case errors.Is(err, ErrCryptoFailure):
		return AuditCodeCryptoFailure
	case errors.Is(err, ErrExpired):
		return AuditCodeExpired
	case errors.Is(err, ErrRevoked):
		return AuditCodeRevoked
	case errors.Is(err, ErrUnknownSubject):
		return AuditCodeUnknownSubject
	case errors.Is(err, ErrAccountInactive):
		return AuditCodeAccountInactive
	case errors.Is(err, ErrMissingCapability):
		return AuditCodeMissingCapability
	case errors.Is(err, ErrMissingRole):
		return AuditCodeMissingRole
	case errors.Is(err, ErrLedgerUnavailable),
		errors.Is(err, ErrIdentityUnavailable),
		errors.Is(err, ErrLimiterUnavailable):
		return AuditCodeUnavailable
	default:
		return AuditCodeInternal
	}
}
