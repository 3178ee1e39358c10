package tokenpair

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/tokenpair/internal/rate"
	"github.com/MrEthical07/tokenpair/jwe"
	"github.com/MrEthical07/tokenpair/jwt"
	"github.com/MrEthical07/tokenpair/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine from configuration and backends.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	ledger     Ledger
	identities IdentityProvider
	passwords  PasswordVerifier
	auditSink  AuditSink
	redis      redis.UniversalClient
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Key slices are copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLedger sets the revocation ledger. Required.
//
// The same ledger must be shared by every process that accepts tokens
// signed with the same keys, otherwise a logout on one node is not
// observed by the others.
func (b *Builder) WithLedger(l Ledger) *Builder {
	b.ledger = l
	return b
}

// WithRedis sets the client backing the login throttle. It is only
// required when Throttle is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLoginThrottle enables failed-login limiting with cfg.
func (b *Builder) WithLoginThrottle(cfg ThrottleConfig) *Builder {
	cfg.Enabled = true
	b.config.Throttle = cfg
	return b
}

// WithIdentityProvider sets the identity directory. Required.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identities = p
	return b
}

// WithPasswordVerifier overrides the default argon2id/bcrypt verifier.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.passwords = v
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithClock injects the clock used for issuing and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
//
// Build may return an error when configuration validation or codec construction fails.
// A Builder can be used only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.ledger == nil {
		return nil, errors.New("revocation ledger required")
	}
	if b.identities == nil {
		return nil, errors.New("identity provider required")
	}
	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("login throttle requires a redis client")
	}

	accessCodec, err := jwt.NewCodec(jwt.Config{
		SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.Tokens.SigningMethod)),
		PrivateKey:    cfg.Tokens.SigningKey,
		PublicKey:     cfg.Tokens.VerifyKey,
		Issuer:        cfg.Tokens.Issuer,
		Audience:      cfg.Tokens.Audience,
	})
	if err != nil {
		return nil, err
	}

	refreshCodec, err := jwe.NewCodec(jwe.Config{
		Key:    cfg.Tokens.EncryptionKey,
		Issuer: cfg.Tokens.Issuer,
	})
	if err != nil {
		return nil, err
	}

	passwords := b.passwords
	if passwords == nil {
		v, err := password.NewVerifier(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
		passwords = v
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	factory := NewFactory(cfg.Tokens.AccessTTL, cfg.Tokens.RefreshTTL)
	factory.Now = now

	var limiter *rate.Limiter
	if cfg.Throttle.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			MaxAttempts:      cfg.Throttle.MaxAttempts,
			Window:           cfg.Throttle.Window,
			EnableIPThrottle: cfg.Throttle.PerIP,
			Prefix:           cfg.Throttle.KeyPrefix,
		})
	}

	e := &Engine{
		config:     cfg,
		access:     accessCodec,
		refresh:    refreshCodec,
		decoder:    NewDecoder(accessCodec, refreshCodec),
		factory:    factory,
		resolver:   NewResolver(b.ledger, b.identities, now),
		ledger:     b.ledger,
		identities: b.identities,
		passwords:  passwords,
		limiter:    limiter,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
		now:        now,
	}

	b.built = true
	return e, nil
}
