// Package identity holds the subject directory consulted at login and on
// every token resolution: who a subject is, which business roles it holds
// and whether its account may authenticate at all.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no identity is registered for a subject.
	ErrNotFound = errors.New("identity not found")
	// ErrUnavailable is returned when the directory backend cannot be reached.
	ErrUnavailable = errors.New("identity directory unavailable")
)

// Role is a business authority granted to an identity.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// ParseRole accepts both the bare ("USER") and the prefixed ("ROLE_USER")
// spelling.
func ParseRole(s string) (Role, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch strings.TrimPrefix(s, "ROLE_") {
	case "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Identity is the directory record of a subject.
type Identity struct {
	Subject               string
	PasswordHash          string
	Roles                 []Role
	Enabled               bool
	AccountNonExpired     bool
	AccountNonLocked      bool
	CredentialsNonExpired bool
}

// Active reports whether every account status flag allows authentication.
func (i Identity) Active() bool {
	return i.Enabled && i.AccountNonExpired && i.AccountNonLocked && i.CredentialsNonExpired
}

// HasRole reports whether r was granted to the identity.
func (i Identity) HasRole(r Role) bool {
	for _, have := range i.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Directory looks identities up by subject. Implementations return
// ErrNotFound for unknown subjects and wrap ErrUnavailable for backend
// failures.
type Directory interface {
	Lookup(ctx context.Context, subject string) (Identity, error)
}

// NormalizeSubject is the canonical form subjects are stored and looked up
// under.
func NormalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}
