// Package jwt implements the access-token codec: compact JWS strings signed
// with HS256 (or Ed25519) whose claims are readable by any holder.
//
// Decoding is fail-soft. Every structural or cryptographic problem is
// reported as token.ErrMalformed or token.ErrCryptoFailure so the caller can
// fall through to the refresh codec without inspecting library errors.
package jwt
