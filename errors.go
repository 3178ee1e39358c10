package tokenpair

import (
	"errors"
	"fmt"
)

// Outcome classes. Transport layers map these and nothing finer:
// ErrUnauthenticated to 401, ErrForbidden to 403, anything else to 500.
var (
	// ErrUnauthenticated is the parent of every "who are you" failure.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is the parent of every "not allowed" failure.
	ErrForbidden = errors.New("forbidden")
)

var (
	// ErrMalformedToken is returned when a bearer string is not a token of either kind.
	ErrMalformedToken = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	// ErrCryptoFailure is returned when a token's signature or tag does not verify.
	ErrCryptoFailure = fmt.Errorf("%w: token verification failed", ErrUnauthenticated)
	// ErrExpired is returned for tokens at or past their expiry.
	ErrExpired = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	// ErrRevoked is returned for tokens whose id is in the revocation ledger.
	ErrRevoked = fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	// ErrUnknownSubject is returned when the token subject has no identity.
	ErrUnknownSubject = fmt.Errorf("%w: unknown subject", ErrUnauthenticated)
	// ErrAccountInactive is returned for disabled, locked or expired accounts.
	ErrAccountInactive = fmt.Errorf("%w: account inactive", ErrUnauthenticated)
	// ErrInvalidCredentials is returned when a login's subject or password is wrong.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	// ErrLoginThrottled is returned while a subject or client IP is over its
	// failed-login budget.
	ErrLoginThrottled = fmt.Errorf("%w: too many failed logins", ErrUnauthenticated)
)

var (
	// ErrMissingCapability is returned when a token lacks the capability an operation needs.
	ErrMissingCapability = fmt.Errorf("%w: missing capability", ErrForbidden)
	// ErrMissingRole is returned when a principal lacks a required business role.
	ErrMissingRole = fmt.Errorf("%w: missing role", ErrForbidden)
)

var (
	// ErrLedgerUnavailable is returned when the revocation ledger cannot be read or written.
	ErrLedgerUnavailable = errors.New("revocation ledger unavailable")
	// ErrIdentityUnavailable is returned when the identity directory cannot be reached.
	ErrIdentityUnavailable = errors.New("identity directory unavailable")
	// ErrLimiterUnavailable is returned when the login limiter cannot be consulted.
	ErrLimiterUnavailable = errors.New("login limiter unavailable")
	// ErrEngineNotReady is returned by a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
