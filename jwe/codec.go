// Package jwe implements the refresh-token codec: compact JWE strings using
// direct symmetric encryption (alg "dir") with AES-GCM content encryption.
//
// Refresh claims are confidential to the server. A holder can neither read
// nor alter them without the encryption key; any alteration fails the GCM
// authentication tag and surfaces as token.ErrCryptoFailure.
package jwe

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/tokenpair/token"
	jose "github.com/go-jose/go-jose/v3"
	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/uuid"
)

// Claims is the plaintext claim set sealed inside a refresh token.
type Claims struct {
	josejwt.Claims
	Capabilities []string `json:"capabilities"`
}

// Config holds the key material of a refresh codec. Key length selects the
// content encryption: 16 bytes for A128GCM, 24 for A192GCM, 32 for A256GCM.
type Config struct {
	Key    []byte
	Issuer string
}

// Codec seals tokens into compact JWE strings and opens them back.
// A Codec is immutable after NewCodec and safe for concurrent use.
type Codec struct {
	key    []byte
	enc    jose.ContentEncryption
	issuer string
}

// NewCodec validates cfg and returns a refresh codec.
func NewCodec(cfg Config) (*Codec, error) {
	enc, err := contentEncryptionFor(len(cfg.Key))
	if err != nil {
		return nil, err
	}
	return &Codec{
		key:    append([]byte(nil), cfg.Key...),
		enc:    enc,
		issuer: strings.TrimSpace(cfg.Issuer),
	}, nil
}

func contentEncryptionFor(n int) (jose.ContentEncryption, error) {
	switch n {
	case 16:
		return jose.A128GCM, nil
	case 24:
		return jose.A192GCM, nil
	case 32:
		return jose.A256GCM, nil
	default:
		return "", fmt.Errorf("refresh key must be 16, 24 or 32 bytes, got %d", n)
	}
}

// ContentEncryption reports the enc header value used by the codec.
func (c *Codec) ContentEncryption() string {
	return string(c.enc)
}

// Encode seals t. The token id is carried as jti and as the kid header.
func (c *Codec) Encode(t token.Token) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	encrypter, err := jose.NewEncrypter(
		c.enc,
		jose.Recipient{Algorithm: jose.DIRECT, Key: c.key, KeyID: t.ID.String()},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	claims := Claims{
		Claims: josejwt.Claims{
			ID:       t.ID.String(),
			Subject:  t.Subject,
			Issuer:   c.issuer,
			IssuedAt: josejwt.NewNumericDate(t.IssuedAt),
			Expiry:   josejwt.NewNumericDate(t.ExpiresAt),
		},
		Capabilities: t.Capabilities.Strings(),
	}

	return josejwt.Encrypted(encrypter).Claims(claims).CompactSerialize()
}

// Decode opens raw and returns the token it carries. Errors wrap
// token.ErrMalformed or token.ErrCryptoFailure. Expiry is not checked here.
func (c *Codec) Decode(raw string) (token.Token, error) {
	if err := checkCompact(raw); err != nil {
		return token.Token{}, err
	}

	parsed, err := josejwt.ParseEncrypted(raw)
	if err != nil {
		return token.Token{}, fmt.Errorf("%w: %v", token.ErrMalformed, err)
	}
	if len(parsed.Headers) != 1 {
		return token.Token{}, token.ErrMalformed
	}
	header := parsed.Headers[0]
	if header.Algorithm != string(jose.DIRECT) {
		return token.Token{}, fmt.Errorf("%w: unexpected key management %q", token.ErrMalformed, header.Algorithm)
	}
	if enc, _ := header.ExtraHeaders[jose.HeaderKey("enc")].(string); enc != string(c.enc) {
		return token.Token{}, fmt.Errorf("%w: unexpected content encryption %q", token.ErrMalformed, enc)
	}

	var claims Claims
	if err := parsed.Claims(c.key, &claims); err != nil {
		if errors.Is(err, jose.ErrCryptoFailure) {
			return token.Token{}, fmt.Errorf("%w: %v", token.ErrCryptoFailure, err)
		}
		return token.Token{}, fmt.Errorf("%w: %v", token.ErrMalformed, err)
	}

	if header.KeyID != claims.ID {
		return token.Token{}, fmt.Errorf("%w: kid does not match jti", token.ErrMalformed)
	}
	return c.toToken(claims)
}

func (c *Codec) toToken(claims Claims) (token.Token, error) {
	if c.issuer != "" && claims.Issuer != c.issuer {
		return token.Token{}, fmt.Errorf("%w: issuer mismatch", token.ErrMalformed)
	}
	if claims.IssuedAt == nil || claims.Expiry == nil {
		return token.Token{}, fmt.Errorf("%w: missing iat or exp", token.ErrMalformed)
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return token.Token{}, fmt.Errorf("%w: invalid jti", token.ErrMalformed)
	}
	caps, err := token.ParseCapabilities(claims.Capabilities)
	if err != nil {
		return token.Token{}, err
	}

	t, err := token.New(id, claims.Subject, caps, claims.IssuedAt.Time(), claims.Expiry.Time())
	if err != nil {
		return token.Token{}, fmt.Errorf("%w: %v", token.ErrMalformed, err)
	}
	return t, nil
}

// checkCompact enforces the canonical five-segment form: direct encryption
// leaves the encrypted-key segment empty, and every other segment must be
// canonical unpadded base64url so that no two strings decode alike.
func checkCompact(raw string) error {
	parts := strings.Split(raw, ".")
	if len(parts) != 5 {
		return token.ErrMalformed
	}
	if parts[1] != "" {
		return fmt.Errorf("%w: direct encryption carries no key", token.ErrMalformed)
	}
	for i, part := range parts {
		if i == 1 {
			continue
		}
		if part == "" {
			return token.ErrMalformed
		}
		if _, err := base64.RawURLEncoding.Strict().DecodeString(part); err != nil {
			return fmt.Errorf("%w: segment %d: %v", token.ErrMalformed, i, err)
		}
	}
	return nil
}
