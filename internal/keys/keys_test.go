package keys

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOctetFromJWK(t *testing.T) {
	doc, err := GenerateJWK(32, "HS256")
	require.NoError(t, err)
	assert.Contains(t, doc, `"kty":"oct"`)
	assert.Contains(t, doc, `"use":"sig"`)

	key, err := ParseOctet(doc)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestParseOctetFromBase64(t *testing.T) {
	raw := []byte("0123456789abcdef")

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawURLEncoding} {
		key, err := ParseOctet("  " + enc.EncodeToString(raw) + "\n")
		require.NoError(t, err)
		assert.Equal(t, raw, key)
	}
}

func TestParseOctetRejects(t *testing.T) {
	_, err := ParseOctet("")
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = ParseOctet(`{"kty":"EC","crv":"P-256"}`)
	assert.Error(t, err)

	_, err = ParseOctet("!!not base64!!")
	assert.Error(t, err)
}

func TestGenerateJWKUsesReader(t *testing.T) {
	doc, err := generateJWK(bytes.NewReader(bytes.Repeat([]byte{7}, 16)), 16, "A128GCM")
	require.NoError(t, err)

	key, err := ParseOctet(doc)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{7}, 16), key)
	assert.Contains(t, doc, `"use":"enc"`)

	_, err = generateJWK(bytes.NewReader(nil), 16, "A128GCM")
	assert.Error(t, err)
}
