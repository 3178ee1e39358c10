package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/tokenpair/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm of the access codec.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

const minHMACKeyLength = 32

// Config holds the key material of an access codec.
//
// PrivateKey is the HMAC secret for MethodHS256 or the Ed25519 private key
// (raw or PEM) for MethodEd25519. PublicKey is only read for MethodEd25519
// and defaults to the public half of PrivateKey.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
}

// Claims is the wire claim set of an access token.
type Claims struct {
	Capabilities []string `json:"capabilities"`
	jwt.RegisteredClaims
}

// Codec signs tokens into compact JWS strings and verifies them back.
// A Codec is immutable after NewCodec and safe for concurrent use.
type Codec struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
}

// NewCodec validates cfg and returns an access codec.
func NewCodec(cfg Config) (*Codec, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	c := &Codec{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACKeyLength {
			return nil, fmt.Errorf("hs256 key must be at least %d bytes", minHMACKeyLength)
		}
		key := append([]byte(nil), cfg.PrivateKey...)
		c.method = jwt.SigningMethodHS256
		c.signKey = key
		c.verifyKey = key
	case MethodEd25519:
		c.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			c.signKey = priv
			c.verifyKey = priv.Public().(ed25519.PublicKey)
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			c.verifyKey = pub
		}
		if c.verifyKey == nil {
			return nil, errors.New("ed25519 requires a private or public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return c, nil
}

// Encode signs t. The token id is carried both as jti and as the kid header.
func (c *Codec) Encode(t token.Token) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if c.signKey == nil {
		return "", errors.New("codec has no signing key")
	}

	claims := Claims{
		Capabilities: t.Capabilities.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        t.ID.String(),
			Subject:   t.Subject,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(t.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(t.ExpiresAt),
		},
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	tok := jwt.NewWithClaims(c.method, claims)
	tok.Header["kid"] = t.ID.String()

	return tok.SignedString(c.signKey)
}

// Decode verifies raw and returns the token it carries. Errors wrap
// token.ErrMalformed or token.ErrCryptoFailure and never describe which
// check failed beyond that. Expiry is not checked here.
func (c *Codec) Decode(raw string) (token.Token, error) {
	if raw == "" || strings.Count(raw, ".") != 2 {
		return token.Token{}, token.ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return token.Token{}, fmt.Errorf("%w: %v", token.ErrCryptoFailure, err)
		}
		return token.Token{}, fmt.Errorf("%w: %v", token.ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return token.Token{}, token.ErrMalformed
	}

	return c.toToken(parsed.Header, claims)
}

func (c *Codec) toToken(header map[string]interface{}, claims *Claims) (token.Token, error) {
	if c.config.Issuer != "" && claims.Issuer != c.config.Issuer {
		return token.Token{}, fmt.Errorf("%w: issuer mismatch", token.ErrMalformed)
	}
	if c.config.Audience != "" && !containsAudience(claims.Audience, c.config.Audience) {
		return token.Token{}, fmt.Errorf("%w: audience mismatch", token.ErrMalformed)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return token.Token{}, fmt.Errorf("%w: missing iat or exp", token.ErrMalformed)
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return token.Token{}, fmt.Errorf("%w: invalid jti", token.ErrMalformed)
	}
	if kid, _ := header["kid"].(string); kid != claims.ID {
		return token.Token{}, fmt.Errorf("%w: kid does not match jti", token.ErrMalformed)
	}

	caps, err := token.ParseCapabilities(claims.Capabilities)
	if err != nil {
		return token.Token{}, err
	}

	t, err := token.New(id, claims.Subject, caps, claims.IssuedAt.Time, claims.ExpiresAt.Time)
	if err != nil {
		return token.Token{}, fmt.Errorf("%w: %v", token.ErrMalformed, err)
	}
	return t, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
