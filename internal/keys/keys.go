// Package keys loads and generates the symmetric key material used by the
// token codecs. Keys are accepted as JWK "oct" documents or as plain
// base64/base64url strings.
package keys

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/google/uuid"
)

// ErrEmptyKey is returned when no key material was configured.
var ErrEmptyKey = errors.New("key material is empty")

// ParseOctet decodes a symmetric key from a JWK JSON document or from a
// base64 string in any of the standard or URL alphabets, padded or not.
func ParseOctet(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmptyKey
	}

	if strings.HasPrefix(value, "{") {
		var jwk jose.JSONWebKey
		if err := json.Unmarshal([]byte(value), &jwk); err != nil {
			return nil, fmt.Errorf("parse jwk: %w", err)
		}
		raw, ok := jwk.Key.([]byte)
		if !ok {
			return nil, fmt.Errorf("jwk kid %q is not an oct key", jwk.KeyID)
		}
		if len(raw) == 0 {
			return nil, ErrEmptyKey
		}
		return raw, nil
	}

	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		if raw, err := enc.DecodeString(value); err == nil && len(raw) > 0 {
			return raw, nil
		}
	}
	return nil, errors.New("key is neither a jwk nor base64")
}

// GenerateJWK returns a fresh random oct key of size bytes serialized as a
// JWK with a random kid and the given alg hint.
func GenerateJWK(size int, alg string) (string, error) {
	return generateJWK(rand.Reader, size, alg)
}

func generateJWK(r io.Reader, size int, alg string) (string, error) {
	if size <= 0 {
		return "", errors.New("key size must be positive")
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}

	jwk := jose.JSONWebKey{
		Key:       raw,
		KeyID:     uuid.NewString(),
		Algorithm: alg,
		Use:       "enc",
	}
	if alg == "HS256" {
		jwk.Use = "sig"
	}

	data, err := jwk.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
