// Package token defines the credential claim set shared by the access and
// refresh codecs.
//
// A [Token] is a value type. Once constructed through [New] its fields are
// never mutated; codecs serialize it and the engine derives new tokens from
// it, but no package writes back into an existing Token.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMalformed is returned when a serialized token cannot be parsed into
	// a structurally valid Token.
	ErrMalformed = errors.New("malformed token")
	// ErrCryptoFailure is returned when a serialized token parses but its
	// signature or authentication tag does not verify.
	ErrCryptoFailure = errors.New("token crypto failure")
)

// Token is an immutable credential claim set.
type Token struct {
	ID           uuid.UUID
	Subject      string
	Capabilities Capabilities
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// New validates the fields and returns a Token with instants normalized to
// UTC second precision, the resolution used on the wire.
func New(id uuid.UUID, subject string, caps Capabilities, issuedAt, expiresAt time.Time) (Token, error) {
	t := Token{
		ID:           id,
		Subject:      subject,
		Capabilities: caps,
		IssuedAt:     Truncate(issuedAt),
		ExpiresAt:    Truncate(expiresAt),
	}
	if err := t.Validate(); err != nil {
		return Token{}, err
	}
	return t, nil
}

// Validate reports whether t satisfies the structural invariants every
// issued or decoded token must hold.
func (t Token) Validate() error {
	if t.ID == uuid.Nil {
		return errors.New("token id is required")
	}
	if strings.TrimSpace(t.Subject) == "" {
		return errors.New("token subject is required")
	}
	if t.Capabilities.Empty() {
		return errors.New("token must carry at least one capability")
	}
	if !t.Capabilities.Valid() {
		return errors.New("token carries unknown capability bits")
	}
	if t.IssuedAt.IsZero() || t.ExpiresAt.IsZero() {
		return errors.New("token instants are required")
	}
	if !t.ExpiresAt.After(t.IssuedAt) {
		return errors.New("token expiry must be after issuance")
	}
	return nil
}

// Has reports whether t carries capability c.
func (t Token) Has(c Capability) bool {
	return t.Capabilities.Has(c)
}

// ExpiredAt reports whether t is dead at instant now. Expiry is inclusive:
// a token is expired at exactly ExpiresAt.
func (t Token) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Equal compares two tokens field by field using instant equality.
func (t Token) Equal(o Token) bool {
	return t.ID == o.ID &&
		t.Subject == o.Subject &&
		t.Capabilities == o.Capabilities &&
		t.IssuedAt.Equal(o.IssuedAt) &&
		t.ExpiresAt.Equal(o.ExpiresAt)
}

// Truncate converts ts to UTC with whole-second precision.
func Truncate(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Second)
}
