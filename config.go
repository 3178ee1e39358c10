package tokenpair

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the complete engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Tokens   TokenConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Throttle ThrottleConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds lifetimes and key material of the two codecs.
//
// SigningKey is the HS256 secret (at least 32 bytes) or, with
// SigningMethod "ed25519", the Ed25519 private key. EncryptionKey is the
// AES key of the refresh codec (16, 24 or 32 bytes).
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	SigningMethod string
	SigningKey    []byte
	VerifyKey     []byte
	EncryptionKey []byte
}

// AuditConfig controls the asynchronous audit dispatcher.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the authenticate latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// ThrottleConfig bounds failed logins per subject and, optionally, per
// client IP inside a fixed window. It needs a Redis client on the Builder.
type ThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
	PerIP       bool
	KeyPrefix   string
}

// DefaultConfig returns the protocol defaults: 5 minute access tokens and
// 24 hour refresh tokens. Key material must still be supplied.
func DefaultConfig() Config {
	return Config{
		Tokens: TokenConfig{
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    24 * time.Hour,
			Issuer:        "tokenpair",
			SigningMethod: "hs256",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			KeyPrefix:   "login",
		},
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	t := c.Tokens
	if t.AccessTTL <= 0 {
		return errors.New("Tokens AccessTTL must be > 0")
	}
	if t.RefreshTTL <= 0 {
		return errors.New("Tokens RefreshTTL must be > 0")
	}
	if t.AccessTTL >= t.RefreshTTL {
		return errors.New("Tokens AccessTTL must be shorter than RefreshTTL")
	}

	switch strings.ToLower(t.SigningMethod) {
	case "", "hs256":
		if len(t.SigningKey) < 32 {
			return errors.New("hs256 requires a SigningKey of at least 32 bytes")
		}
	case "ed25519":
		if len(t.SigningKey) == 0 {
			return errors.New("ed25519 requires SigningKey")
		}
	default:
		return fmt.Errorf("unsupported signing method %q", t.SigningMethod)
	}

	switch len(t.EncryptionKey) {
	case 16, 24, 32:
	default:
		return errors.New("Tokens EncryptionKey must be 16, 24 or 32 bytes")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Throttle.Enabled && (c.Throttle.MaxAttempts <= 0 || c.Throttle.Window <= 0) {
		return errors.New("Throttle MaxAttempts and Window must be > 0 when throttling is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Tokens.SigningKey = cloneBytes(cfg.Tokens.SigningKey)
	out.Tokens.VerifyKey = cloneBytes(cfg.Tokens.VerifyKey)
	out.Tokens.EncryptionKey = cloneBytes(cfg.Tokens.EncryptionKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
