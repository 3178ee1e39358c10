package tokenpair

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenpair/identity"
	"github.com/MrEthical07/tokenpair/token"
	"github.com/google/uuid"
)

type (
	// Token is the immutable credential claim set.
	Token = token.Token
	// Capability is a grant tag carried by a token.
	Capability = token.Capability
	// Capabilities is a set of capability tags.
	Capabilities = token.Capabilities
	// Identity is a directory record resolved from a token subject.
	Identity = identity.Identity
	// Role is a business authority held by an identity.
	Role = identity.Role
)

const (
	CapabilityAccess  = token.Access
	CapabilityRefresh = token.Refresh
	CapabilityLogout  = token.Logout

	RoleUser  = identity.RoleUser
	RoleAdmin = identity.RoleAdmin
)

// Ledger is the revocation ledger consulted on every authentication.
// Insert must be idempotent and Exists must observe every completed Insert
// for the same id.
type Ledger interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Insert(ctx context.Context, id uuid.UUID, keepUntil time.Time) error
}

// IdentityProvider resolves subjects. Lookup returns identity.ErrNotFound
// for unknown subjects; any other error is treated as an outage.
type IdentityProvider interface {
	Lookup(ctx context.Context, subject string) (Identity, error)
}

// PasswordVerifier checks login passwords against stored hashes.
type PasswordVerifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// TokenCodec converts tokens to wire strings and back. Decode must fail
// with an error wrapping token.ErrMalformed or token.ErrCryptoFailure.
type TokenCodec interface {
	Encode(t Token) (string, error)
	Decode(raw string) (Token, error)
}

// LoginResult is the token pair handed out at login.
type LoginResult struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// AccessResult is the fresh access token handed out by Refresh.
type AccessResult struct {
	AccessToken     string    `json:"accessToken"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
}
