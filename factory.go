package tokenpair

import (
	"time"

	"github.com/MrEthical07/tokenpair/token"
	"github.com/google/uuid"
)

// Factory derives new tokens. Apart from the fresh id and the clock it is
// deterministic and performs no I/O.
type Factory struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
	NewID      func() uuid.UUID
}

// NewFactory returns a factory using the wall clock and random UUIDs.
func NewFactory(accessTTL, refreshTTL time.Duration) Factory {
	return Factory{
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        time.Now,
		NewID:      uuid.New,
	}
}

// IssueAccessToken derives an access token for the subject of source. The
// result always has a fresh id and exactly the ACCESS capability.
func (f Factory) IssueAccessToken(source Token) Token {
	return f.issue(source.Subject, token.AccessSet, f.AccessTTL)
}

// IssueRefreshToken mints a refresh token for an authenticated subject.
// The result carries exactly REFRESH and LOGOUT.
func (f Factory) IssueRefreshToken(subject string) Token {
	return f.issue(subject, token.RefreshSet, f.RefreshTTL)
}

func (f Factory) issue(subject string, caps Capabilities, ttl time.Duration) Token {
	now := token.Truncate(f.now())
	return Token{
		ID:           f.newID(),
		Subject:      subject,
		Capabilities: caps,
		IssuedAt:     now,
		ExpiresAt:    now.Add(ttl),
	}
}

func (f Factory) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func (f Factory) newID() uuid.UUID {
	if f.NewID == nil {
		return uuid.New()
	}
	return f.NewID()
}
