package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokenpair/token"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHSCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "tokenpair"})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func sampleToken(t *testing.T, caps token.Capabilities) token.Token {
	t.Helper()
	now := time.Now()
	tok, err := token.New(uuid.New(), "i.ivanov@test.com", caps, now, now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	return tok
}

func TestCodecRoundTrip(t *testing.T) {
	c := newHSCodec(t)
	for _, caps := range []token.Capabilities{token.AccessSet, token.RefreshSet, token.Of(token.Access, token.Logout)} {
		want := sampleToken(t, caps)
		raw, err := c.Encode(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if strings.Count(raw, ".") != 2 {
			t.Fatalf("expected compact JWS, got %q", raw)
		}
		got, err := c.Decode(raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !got.Equal(want) {
			t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
		}
	}
}

func TestCodecDecodesExpiredTokens(t *testing.T) {
	c := newHSCodec(t)
	past := time.Now().Add(-time.Hour)
	tok, err := token.New(uuid.New(), "a@test.com", token.AccessSet, past, past.Add(time.Minute))
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	raw, err := c.Encode(tok)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := c.Decode(raw); err != nil {
		t.Fatalf("expiry is the resolver's concern, decode failed: %v", err)
	}
}

func TestCodecRejectsEveryBitFlip(t *testing.T) {
	c := newHSCodec(t)
	raw, err := c.Encode(sampleToken(t, token.AccessSet))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for i := 0; i < len(raw); i++ {
		for bit := 0; bit < 8; bit++ {
			b := []byte(raw)
			b[i] ^= 1 << bit
			if _, err := c.Decode(string(b)); err == nil {
				t.Fatalf("tampered token accepted at byte %d bit %d", i, bit)
			}
		}
	}
}

func TestCodecRejectsWrongKey(t *testing.T) {
	c := newHSCodec(t)
	other, err := NewCodec(Config{PrivateKey: []byte("ffffffffffffffffffffffffffffffff"), Issuer: "tokenpair"})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	raw, err := other.Encode(sampleToken(t, token.AccessSet))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := c.Decode(raw); !errors.Is(err, token.ErrCryptoFailure) {
		t.Fatalf("expected ErrCryptoFailure, got %v", err)
	}
}

func TestCodecRejectsForeignTokens(t *testing.T) {
	c := newHSCodec(t)
	id := uuid.New()
	now := time.Now()

	sign := func(method gjwt.SigningMethod, key interface{}, claims Claims, kid string) string {
		t.Helper()
		tok := gjwt.NewWithClaims(method, claims)
		if kid != "" {
			tok.Header["kid"] = kid
		}
		s, err := tok.SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	base := func() Claims {
		return Claims{
			Capabilities: []string{"ACCESS"},
			RegisteredClaims: gjwt.RegisteredClaims{
				ID:        id.String(),
				Subject:   "a@test.com",
				Issuer:    "tokenpair",
				IssuedAt:  gjwt.NewNumericDate(now),
				ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
			},
		}
	}

	unknownCap := base()
	unknownCap.Capabilities = []string{"ACCESS", "ROOT"}
	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"
	noExp := base()
	noExp.ExpiresAt = nil

	none := sign(gjwt.SigningMethodNone, gjwt.UnsafeAllowNoneSignatureType, base(), id.String())
	cases := map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"alg none":       none,
		"hs512":          sign(gjwt.SigningMethodHS512, testSecret, base(), id.String()),
		"unknown cap":    sign(gjwt.SigningMethodHS256, testSecret, unknownCap, id.String()),
		"wrong issuer":   sign(gjwt.SigningMethodHS256, testSecret, wrongIssuer, id.String()),
		"missing exp":    sign(gjwt.SigningMethodHS256, testSecret, noExp, id.String()),
		"kid mismatch":   sign(gjwt.SigningMethodHS256, testSecret, base(), uuid.NewString()),
		"five segments":  "a.b.c.d.e",
		"trailing chars": sign(gjwt.SigningMethodHS256, testSecret, base(), id.String()) + ".x",
	}
	for name, raw := range cases {
		if _, err := c.Decode(raw); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestEd25519Codec(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := NewCodec(Config{SigningMethod: MethodEd25519, PrivateKey: priv})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := NewCodec(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	want := sampleToken(t, token.AccessSet)
	raw, err := signer.Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := verifier.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("round trip mismatch")
	}
	if _, err := verifier.Encode(want); err == nil {
		t.Fatalf("verify-only codec must not sign")
	}
}

func TestNewCodecValidatesKeys(t *testing.T) {
	if _, err := NewCodec(Config{PrivateKey: []byte("short")}); err == nil {
		t.Fatalf("expected short hs256 key to be rejected")
	}
	if _, err := NewCodec(Config{SigningMethod: MethodEd25519}); err == nil {
		t.Fatalf("expected ed25519 without keys to be rejected")
	}
	if _, err := NewCodec(Config{SigningMethod: "rs256", PrivateKey: testSecret}); err == nil {
		t.Fatalf("expected unsupported method to be rejected")
	}
}

// FuzzDecode feeds arbitrary strings to the decoder.
// Goal: no panics; anything accepted must be a structurally valid token.
func FuzzDecode(f *testing.F) {
	c, err := NewCodec(Config{PrivateKey: testSecret})
	if err != nil {
		f.Fatal(err)
	}
	now := time.Now()
	tok, err := token.New(uuid.New(), "fuzz@test.com", token.AccessSet, now, now.Add(time.Minute))
	if err != nil {
		f.Fatal(err)
	}
	valid, err := c.Encode(tok)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		got, err := c.Decode(input)
		if err != nil {
			return
		}
		if err := got.Validate(); err != nil {
			t.Fatalf("decoded invalid token: %v", err)
		}
	})
}
