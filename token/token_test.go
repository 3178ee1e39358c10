package token

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseCapabilitiesRejectsUnknownTags(t *testing.T) {
	cases := []struct {
		name string
		tags []string
		want Capabilities
		err  bool
	}{
		{name: "access", tags: []string{"ACCESS"}, want: AccessSet},
		{name: "refresh pair", tags: []string{"LOGOUT", "REFRESH"}, want: RefreshSet},
		{name: "duplicates collapse", tags: []string{"ACCESS", "ACCESS"}, want: AccessSet},
		{name: "unknown", tags: []string{"ACCESS", "ADMIN"}, err: true},
		{name: "lowercase", tags: []string{"access"}, err: true},
		{name: "empty", tags: nil, err: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCapabilities(tc.tags)
			if tc.err {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("expected ErrMalformed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCapabilitiesStringsOrdered(t *testing.T) {
	got := Of(Logout, Access, Refresh).Strings()
	want := []string{"ACCESS", "REFRESH", "LOGOUT"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if RefreshSet.Has(Access) || !RefreshSet.Has(Logout) {
		t.Fatalf("refresh set membership wrong: %v", RefreshSet)
	}
}

func TestNewValidates(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 500, time.FixedZone("x", 3600))

	tok, err := New(uuid.New(), "a@test.com", AccessSet, now, now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tok.IssuedAt.Location() != time.UTC || tok.IssuedAt.Nanosecond() != 0 {
		t.Fatalf("expected UTC second precision, got %v", tok.IssuedAt)
	}

	bad := []struct {
		name string
		fn   func() (Token, error)
	}{
		{"nil id", func() (Token, error) { return New(uuid.Nil, "a", AccessSet, now, now.Add(time.Minute)) }},
		{"blank subject", func() (Token, error) { return New(uuid.New(), " ", AccessSet, now, now.Add(time.Minute)) }},
		{"no caps", func() (Token, error) { return New(uuid.New(), "a", 0, now, now.Add(time.Minute)) }},
		{"unknown bits", func() (Token, error) { return New(uuid.New(), "a", Capabilities(0x80), now, now.Add(time.Minute)) }},
		{"expiry not after issue", func() (Token, error) { return New(uuid.New(), "a", AccessSet, now, now) }},
	}
	for _, tc := range bad {
		if _, err := tc.fn(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestExpiredAtIsInclusive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	tok, err := New(uuid.New(), "a@test.com", AccessSet, now, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tok.ExpiredAt(now.Add(59 * time.Second)) {
		t.Fatalf("token should be live before expiry")
	}
	if !tok.ExpiredAt(tok.ExpiresAt) {
		t.Fatalf("token must be dead at exactly ExpiresAt")
	}
}
