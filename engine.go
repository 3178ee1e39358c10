package tokenpair

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tokenpair/identity"
	"github.com/MrEthical07/tokenpair/internal/rate"
)

// Engine runs the dual-token protocol: login, refresh, logout and
// per-request authentication.
//
// Engine instances are built once through [Builder.Build] and are safe for
// concurrent use. The revocation ledger is the only shared mutable state
// the engine touches.
type Engine struct {
	config     Config
	access     TokenCodec
	refresh    TokenCodec
	decoder    *Decoder
	factory    Factory
	resolver   *Resolver
	ledger     Ledger
	identities IdentityProvider
	passwords  PasswordVerifier
	limiter    *rate.Limiter
	audit      *auditDispatcher
	metrics    *Metrics
	now        func() time.Time
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped on a full queue.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.Metrics().Snapshot()
}

// Metrics exposes the live counter set for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
LOGIN
====================================
*/

// Login checks subject and password and, on success, issues a refresh token
// and an access token derived from it.
//
// Every credential problem (unknown subject, wrong password, unreadable
// stored hash) is reported as ErrInvalidCredentials. Inactive accounts
// yield ErrAccountInactive and directory outages ErrIdentityUnavailable.
// With a login throttle, a subject or IP over budget gets
// ErrLoginThrottled before the password is looked at.
func (e *Engine) Login(ctx context.Context, subject, password string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	subject = identity.NormalizeSubject(subject)
	ip := clientIPFromContext(ctx)
	if err := e.checkThrottle(ctx, subject, ip); err != nil {
		return nil, e.loginFailed(ctx, subject, err)
	}

	id, err := e.checkCredentials(ctx, subject, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			e.recordFailedLogin(ctx, subject, ip)
		}
		return nil, e.loginFailed(ctx, subject, err)
	}

	res, refreshID, err := e.issuePair(id.Subject)
	if err != nil {
		return nil, e.loginFailed(ctx, id.Subject, err)
	}

	if e.limiter != nil && subject != "" {
		if err := e.limiter.Reset(ctx, subject); err != nil {
			e.metricInc(MetricBackendUnavailable)
		}
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginSuccess, true, id.Subject, refreshID, nil, nil)
	return res, nil
}

func (e *Engine) loginFailed(ctx context.Context, subject string, err error) error {
	e.metricInc(MetricLoginFailure)
	switch {
	case errors.Is(err, ErrLoginThrottled):
		e.metricInc(MetricLoginThrottled)
	case !errors.Is(err, ErrUnauthenticated):
		e.metricInc(MetricBackendUnavailable)
	}
	e.emitAudit(ctx, AuditLoginFailure, false, subject, "", err, nil)
	return err
}

// checkThrottle fails closed: an unreachable limiter refuses the login.
func (e *Engine) checkThrottle(ctx context.Context, subject, ip string) error {
	if e.limiter == nil || subject == "" {
		return nil
	}
	err := e.limiter.Check(ctx, subject, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return ErrLoginThrottled
	default:
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
}

func (e *Engine) recordFailedLogin(ctx context.Context, subject, ip string) {
	if e.limiter == nil || subject == "" {
		return
	}
	if err := e.limiter.Fail(ctx, subject, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricBackendUnavailable)
	}
}

func (e *Engine) checkCredentials(ctx context.Context, subject, password string) (Identity, error) {
	if subject == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	id, err := e.identities.Lookup(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}

	ok, err := e.passwords.Verify(password, id.PasswordHash)
	if err != nil || !ok {
		return Identity{}, ErrInvalidCredentials
	}
	if !id.Active() {
		return Identity{}, ErrAccountInactive
	}
	return id, nil
}

// IssuePair mints a token pair for a subject authenticated by other means,
// for example by an upstream single sign-on handshake. The subject must
// still resolve to an active identity.
func (e *Engine) IssuePair(ctx context.Context, subject string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	id, err := e.identities.Lookup(ctx, identity.NormalizeSubject(subject))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	if !id.Active() {
		return nil, ErrAccountInactive
	}

	res, refreshID, err := e.issuePair(id.Subject)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginSuccess, true, id.Subject, refreshID, nil, func() map[string]string {
		return map[string]string{"method": "external"}
	})
	return res, nil
}

func (e *Engine) issuePair(subject string) (*LoginResult, string, error) {
	refreshTok := e.factory.IssueRefreshToken(subject)
	accessTok := e.factory.IssueAccessToken(refreshTok)

	refreshRaw, err := e.refresh.Encode(refreshTok)
	if err != nil {
		return nil, "", fmt.Errorf("encode refresh token: %w", err)
	}
	accessRaw, err := e.access.Encode(accessTok)
	if err != nil {
		return nil, "", fmt.Errorf("encode access token: %w", err)
	}

	return &LoginResult{
		AccessToken:      accessRaw,
		AccessExpiresAt:  accessTok.ExpiresAt,
		RefreshToken:     refreshRaw,
		RefreshExpiresAt: refreshTok.ExpiresAt,
	}, refreshTok.ID.String(), nil
}

/*
====================================
AUTHENTICATION
====================================
*/

// Decode runs the ordered decode attempt on a bearer string.
func (e *Engine) Decode(raw string) Decoded {
	if e == nil {
		return Decoded{Kind: KindNone, Err: ErrEngineNotReady}
	}
	d := e.decoder.Decode(raw)
	switch d.Kind {
	case KindAccess:
		e.metricInc(MetricDecodeAccess)
	case KindRefresh:
		e.metricInc(MetricDecodeRefresh)
	default:
		e.metricInc(MetricDecodeNone)
	}
	return d
}

// Authenticate decodes raw and resolves it to a principal. It does not
// require any capability; callers follow up with Authorize.
func (e *Engine) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}
	}()

	d := e.Decode(raw)
	p, err := e.resolve(ctx, d)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		e.emitAudit(ctx, AuditAuthenticateFailure, false, d.Token.Subject, tokenIDOf(d), err, func() map[string]string {
			return map[string]string{"kind": d.Kind.String()}
		})
		return nil, err
	}
	e.metricInc(MetricAuthenticateSuccess)
	return p, nil
}

func (e *Engine) resolve(ctx context.Context, d Decoded) (*Principal, error) {
	p, err := e.resolver.Resolve(ctx, d)
	switch {
	case err == nil:
	case errors.Is(err, ErrRevoked):
		e.metricInc(MetricRevokedRejected)
	case errors.Is(err, ErrExpired):
		e.metricInc(MetricExpiredRejected)
	case !errors.Is(err, ErrUnauthenticated):
		e.metricInc(MetricBackendUnavailable)
	}
	return p, err
}

// Authorize returns ErrMissingCapability unless p carries every capability
// in caps.
func (e *Engine) Authorize(ctx context.Context, p *Principal, caps ...Capability) error {
	if p == nil {
		return ErrUnauthenticated
	}
	for _, c := range caps {
		if !p.Can(c) {
			e.metricInc(MetricCapabilityDenied)
			e.emitAudit(ctx, AuditAccessDenied, false, p.Subject, p.TokenID.String(), ErrMissingCapability, func() map[string]string {
				return map[string]string{"capability": c.String()}
			})
			return ErrMissingCapability
		}
	}
	return nil
}

// AuthorizeRole returns ErrMissingRole unless p holds at least one of
// roles for this request. Principals without ACCESS hold no roles.
func (e *Engine) AuthorizeRole(ctx context.Context, p *Principal, roles ...Role) error {
	if p == nil {
		return ErrUnauthenticated
	}
	for _, r := range roles {
		if p.HasRole(r) {
			return nil
		}
	}
	e.metricInc(MetricRoleDenied)
	e.emitAudit(ctx, AuditAccessDenied, false, p.Subject, p.TokenID.String(), ErrMissingRole, func() map[string]string {
		return map[string]string{"roles": joinRoles(roles)}
	})
	return ErrMissingRole
}

/*
====================================
REFRESH / LOGOUT
====================================
*/

// Refresh issues a new access token from a live refresh token. The refresh
// token itself is neither rotated nor revoked.
func (e *Engine) Refresh(ctx context.Context, raw string) (*AccessResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	d, p, err := e.refreshPrincipal(ctx, raw, CapabilityRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefreshFailure, false, d.Token.Subject, tokenIDOf(d), err, nil)
		return nil, err
	}

	accessTok := e.factory.IssueAccessToken(d.Token)
	accessRaw, err := e.access.Encode(accessTok)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, fmt.Errorf("encode access token: %w", err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefreshSuccess, true, p.Subject, p.TokenID.String(), nil, nil)
	return &AccessResult{AccessToken: accessRaw, AccessExpiresAt: accessTok.ExpiresAt}, nil
}

// Logout revokes a live refresh token until its natural expiry. Once it
// returns nil, every later Refresh or Logout with the same token fails.
func (e *Engine) Logout(ctx context.Context, raw string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	d, p, err := e.refreshPrincipal(ctx, raw, CapabilityLogout)
	if err == nil {
		if insertErr := e.ledger.Insert(ctx, p.TokenID, p.ExpiresAt); insertErr != nil {
			e.metricInc(MetricBackendUnavailable)
			err = fmt.Errorf("%w: %v", ErrLedgerUnavailable, insertErr)
		}
	}
	if err != nil {
		e.metricInc(MetricLogoutFailure)
		e.emitAudit(ctx, AuditLogoutFailure, false, d.Token.Subject, tokenIDOf(d), err, nil)
		return err
	}

	e.metricInc(MetricLogoutSuccess)
	e.emitAudit(ctx, AuditLogoutSuccess, true, p.Subject, p.TokenID.String(), nil, nil)
	return nil
}

// refreshPrincipal authenticates raw and requires that it came through the
// refresh codec carrying capability c. An access token presented here is
// authenticated but lacks c, so it fails as forbidden rather than
// unauthenticated.
func (e *Engine) refreshPrincipal(ctx context.Context, raw string, c Capability) (Decoded, *Principal, error) {
	d := e.Decode(raw)
	p, err := e.resolve(ctx, d)
	if err != nil {
		return d, nil, err
	}
	if err := e.Authorize(ctx, p, c); err != nil {
		return d, nil, err
	}
	if d.Kind != KindRefresh {
		e.metricInc(MetricCapabilityDenied)
		return d, nil, ErrMissingCapability
	}
	return d, p, nil
}

func tokenIDOf(d Decoded) string {
	if d.Kind == KindNone {
		return ""
	}
	return d.Token.ID.String()
}

func joinRoles(roles []Role) string {
	s := make([]string, len(roles))
	for i, r := range roles {
		s[i] = string(r)
	}
	return strings.Join(s, ",")
}
