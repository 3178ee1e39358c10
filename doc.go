// Package tokenpair provides a stateless dual-token authentication engine.
//
// A successful login hands out two bearer tokens. The access token is a
// compact JWS carrying only the ACCESS capability; it is short-lived and is
// accepted on every protected resource request. The refresh token is a
// compact JWE carrying REFRESH and LOGOUT; it is long-lived, opaque to the
// holder and only accepted by the refresh and logout operations.
//
// Neither token is stored. The only server-side state is the revocation
// ledger, which records the ids of refresh tokens that were logged out,
// each kept until that token's own expiry. Every authentication consults
// the ledger before anything else.
//
// # Logout scope
//
// Logout revokes the refresh token only. Access tokens are never written
// to the ledger, so one already handed out stays valid until it expires;
// keep AccessTTL short.
//
// # Login throttling
//
// With [Builder.WithRedis] and [Builder.WithLoginThrottle], failed
// password checks are counted per subject (and optionally per client IP)
// in fixed Redis windows. Once a limit is reached Login returns
// [ErrLoginThrottled] until the window ends; a successful login clears the
// subject's counter. If Redis cannot be reached Login fails with
// [ErrLimiterUnavailable] rather than admitting unthrottled attempts.
//
// # Architecture boundaries
//
// tokenpair is the public surface: [Engine], [Builder], [Config] and the
// [Principal] handed to request handlers. Codecs live in the jwt and jwe
// packages, the claim model in token, backends in ledger and identity.
// None of those packages import tokenpair.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Outcomes
//
// Failures are reported through two parent errors. Use errors.Is with
// [ErrUnauthenticated] (HTTP 401) and [ErrForbidden] (HTTP 403); anything
// else, such as [ErrLedgerUnavailable], is a server fault.
package tokenpair
