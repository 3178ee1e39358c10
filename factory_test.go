package tokenpair

import (
	"testing"
	"time"

	"github.com/MrEthical07/tokenpair/token"
)

func TestFactoryIssueRefreshToken(t *testing.T) {
	clock := newTestClock()
	clock.Advance(750 * time.Millisecond)

	f := NewFactory(5*time.Minute, 24*time.Hour)
	f.Now = clock.Now

	rt := f.IssueRefreshToken("i.ivanov@test.com")
	if rt.Capabilities != token.RefreshSet {
		t.Fatalf("expected REFRESH+LOGOUT, got %v", rt.Capabilities)
	}
	if rt.IssuedAt.Nanosecond() != 0 {
		t.Fatal("issued-at must be truncated to whole seconds")
	}
	if got := rt.ExpiresAt.Sub(rt.IssuedAt); got != 24*time.Hour {
		t.Fatalf("expected 24h lifetime, got %v", got)
	}
	if err := rt.Validate(); err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
}

func TestFactoryIssueAccessTokenFromRefresh(t *testing.T) {
	clock := newTestClock()
	f := NewFactory(5*time.Minute, 24*time.Hour)
	f.Now = clock.Now

	rt := f.IssueRefreshToken("i.ivanov@test.com")
	clock.Advance(time.Hour)
	at := f.IssueAccessToken(rt)

	if at.ID == rt.ID {
		t.Fatal("access token must get a fresh id")
	}
	if at.Subject != rt.Subject {
		t.Fatalf("subject mismatch %q != %q", at.Subject, rt.Subject)
	}
	if at.Capabilities != token.AccessSet {
		t.Fatalf("expected ACCESS only, got %v", at.Capabilities)
	}
	if !at.IssuedAt.Equal(clock.Now()) || at.ExpiresAt.Sub(at.IssuedAt) != 5*time.Minute {
		t.Fatalf("unexpected access window %v..%v", at.IssuedAt, at.ExpiresAt)
	}
}

func TestFactoryZeroValueUsesDefaults(t *testing.T) {
	f := Factory{AccessTTL: time.Minute, RefreshTTL: time.Hour}
	a := f.IssueRefreshToken("x")
	b := f.IssueRefreshToken("x")
	if a.ID == b.ID {
		t.Fatal("ids must be unique")
	}
	if time.Since(a.IssuedAt) > time.Minute {
		t.Fatal("zero-value factory should use the wall clock")
	}
}
