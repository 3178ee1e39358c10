package tokenpair

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEventType names the operation an audit event describes.
type AuditEventType string

const (
	AuditLoginSuccess        AuditEventType = "login_success"
	AuditLoginFailure        AuditEventType = "login_failure"
	AuditRefreshSuccess      AuditEventType = "refresh_success"
	AuditRefreshFailure      AuditEventType = "refresh_failure"
	AuditLogoutSuccess       AuditEventType = "logout_success"
	AuditLogoutFailure       AuditEventType = "logout_failure"
	AuditAuthenticateFailure AuditEventType = "authenticate_failure"
	AuditAccessDenied        AuditEventType = "access_denied"
)

// AuditErrorCode is the coarse failure reason recorded on audit events.
type AuditErrorCode string

const (
	AuditCodeInvalidCredentials AuditErrorCode = "invalid_credentials"
	AuditCodeThrottled          AuditErrorCode = "throttled"
	AuditCodeMalformedToken     AuditErrorCode = "malformed_token"
	AuditCodeCryptoFailure      AuditErrorCode = "crypto_failure"
	AuditCodeExpired            AuditErrorCode = "expired"
	AuditCodeRevoked            AuditErrorCode = "revoked"
	AuditCodeUnknownSubject     AuditErrorCode = "unknown_subject"
	AuditCodeAccountInactive    AuditErrorCode = "account_inactive"
	AuditCodeMissingCapability  AuditErrorCode = "missing_capability"
	AuditCodeMissingRole        AuditErrorCode = "missing_role"
	AuditCodeUnavailable        AuditErrorCode = "backend_unavailable"
	AuditCodeInternal           AuditErrorCode = "internal_error"
)

// AuditEvent is one login, refresh, logout or authorization outcome.
// TokenID is the jti of the token involved; the token string itself
// never appears.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType AuditEventType    `json:"event_type"`
	Subject   string            `json:"subject,omitempty"`
	TokenID   string            `json:"token_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Error     AuditErrorCode    `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events one at a time from the engine's delivery
// goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a plain function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// FanOutSink hands every event to each sink in order.
type FanOutSink []AuditSink

func (s FanOutSink) Emit(ctx context.Context, event AuditEvent) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}

// ChannelSink exposes events on a channel. Tests read from Events.
type ChannelSink struct {
	out chan AuditEvent
}

func NewChannelSink(capacity int) *ChannelSink {
	return &ChannelSink{out: make(chan AuditEvent, max(capacity, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case <-ctx.Done():
	case s.out <- event:
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent { return s.out }

// JSONWriterSink encodes each event as a single JSON line on w.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	// Encoder terminates each value with a newline.
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}
