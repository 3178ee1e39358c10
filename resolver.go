package tokenpair

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenpair/identity"
	"github.com/google/uuid"
)

// Principal is the identity and capability set bound to an authenticated
// request.
type Principal struct {
	Subject      string
	TokenID      uuid.UUID
	Kind         Kind
	Capabilities Capabilities
	ExpiresAt    time.Time
	Identity     Identity
	// Roles are the business roles granted for this request. They are
	// empty when the token lacks ACCESS, whatever the identity holds.
	Roles []Role
}

// Can reports whether the principal's token carries c.
func (p *Principal) Can(c Capability) bool {
	return p != nil && p.Capabilities.Has(c)
}

// HasRole reports whether r is granted for this request.
func (p *Principal) HasRole(r Role) bool {
	if p == nil {
		return false
	}
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Resolver turns a decoded token into a Principal.
type Resolver struct {
	ledger     Ledger
	identities IdentityProvider
	now        func() time.Time
}

func NewResolver(ledger Ledger, identities IdentityProvider, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{ledger: ledger, identities: identities, now: now}
}

// Resolve checks, in order, revocation, expiry and the subject's identity.
// Revocation comes first so a revoked token is reported as revoked even
// once it has also expired.
func (r *Resolver) Resolve(ctx context.Context, d Decoded) (*Principal, error) {
	if d.Kind == KindNone {
		if d.Err != nil {
			return nil, d.Err
		}
		return nil, ErrMalformedToken
	}
	t := d.Token

	revoked, err := r.ledger.Exists(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	if t.ExpiredAt(r.now()) {
		return nil, ErrExpired
	}

	id, err := r.identities.Lookup(ctx, t.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	if !id.Active() {
		return nil, ErrAccountInactive
	}

	p := &Principal{
		Subject:      t.Subject,
		TokenID:      t.ID,
		Kind:         d.Kind,
		Capabilities: t.Capabilities,
		ExpiresAt:    t.ExpiresAt,
		Identity:     id,
	}
	if t.Has(CapabilityAccess) {
		p.Roles = append([]Role(nil), id.Roles...)
	}
	return p, nil
}
