package token

import (
	"fmt"
	"strings"
)

// Capability is a single grant tag carried inside a token.
type Capability uint8

const (
	// Access allows calls to protected resources.
	Access Capability = 1 << iota
	// Refresh allows minting a new access token.
	Refresh
	// Logout allows the token to revoke itself.
	Logout
)

const capabilityMask = Capabilities(Access | Refresh | Logout)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{Access, "ACCESS"},
	{Refresh, "REFRESH"},
	{Logout, "LOGOUT"},
}

func (c Capability) String() string {
	for _, n := range capabilityNames {
		if n.cap == c {
			return n.name
		}
	}
	return fmt.Sprintf("Capability(%d)", uint8(c))
}

// ParseCapability maps a wire tag to its Capability. Tags are matched
// case-sensitively; anything outside the closed set is rejected.
func ParseCapability(tag string) (Capability, error) {
	for _, n := range capabilityNames {
		if n.name == tag {
			return n.cap, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown capability %q", ErrMalformed, tag)
}

// Capabilities is a set of Capability values stored as a bitmask.
type Capabilities uint8

// Of builds a set from the given capabilities.
func Of(caps ...Capability) Capabilities {
	var s Capabilities
	for _, c := range caps {
		s |= Capabilities(c)
	}
	return s
}

var (
	// AccessSet is the exact set carried by access tokens.
	AccessSet = Of(Access)
	// RefreshSet is the exact set carried by refresh tokens.
	RefreshSet = Of(Refresh, Logout)
)

// Has reports whether c is in the set.
func (s Capabilities) Has(c Capability) bool {
	return s&Capabilities(c) != 0
}

// Empty reports whether the set holds no capability.
func (s Capabilities) Empty() bool {
	return s == 0
}

// Valid reports whether the set only holds known capabilities.
func (s Capabilities) Valid() bool {
	return s&^capabilityMask == 0
}

// Strings returns the wire tags in declaration order.
func (s Capabilities) Strings() []string {
	out := make([]string, 0, len(capabilityNames))
	for _, n := range capabilityNames {
		if s.Has(n.cap) {
			out = append(out, n.name)
		}
	}
	return out
}

func (s Capabilities) String() string {
	return "{" + strings.Join(s.Strings(), ",") + "}"
}

// ParseCapabilities decodes a wire tag list. Unknown tags and empty lists
// fail with ErrMalformed; duplicates collapse.
func ParseCapabilities(tags []string) (Capabilities, error) {
	if len(tags) == 0 {
		return 0, fmt.Errorf("%w: empty capability list", ErrMalformed)
	}
	var s Capabilities
	for _, tag := range tags {
		c, err := ParseCapability(tag)
		if err != nil {
			return 0, err
		}
		s |= Capabilities(c)
	}
	return s, nil
}
