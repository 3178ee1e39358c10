package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenpair"
	"github.com/MrEthical07/tokenpair/identity"
	"github.com/MrEthical07/tokenpair/internal/config"
	"github.com/MrEthical07/tokenpair/ledger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// initRedis connects the client shared by the redis ledger and the login
// throttle. It returns nil when neither is configured.
func initRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.NeedsRedis() {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis ready", zap.String("addr", cfg.Redis.Addr), zap.Duration("ping", time.Since(start)))
	return client, nil
}

// initLedger builds the configured revocation ledger. Backends without
// native expiry get a background sweeper, stopped by the returned func.
func initLedger(ctx context.Context, cfg *config.Config, logger *zap.Logger, db *sql.DB, rdb *redis.Client) (tokenpair.Ledger, func(), error) {
	switch cfg.Ledger.Backend {
	case "redis":
		return ledger.NewRedisLedger(rdb, cfg.Redis.Prefix+":revoked"), func() {}, nil

	case "postgres":
		store := ledger.NewPostgresLedger(db, cfg.DB.QueryTimeout)
		return store, startSweeper(ctx, logger, store, cfg.Ledger.SweepInterval), nil

	case "memory":
		store := ledger.NewMemoryLedger()
		logger.Warn("memory ledger: revocations are lost on restart")
		return store, startSweeper(ctx, logger, store, cfg.Ledger.SweepInterval), nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
}

func startSweeper(ctx context.Context, logger *zap.Logger, p ledger.Purger, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ledger.NewSweeper(logger.Named("sweeper"), p, interval).Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func newDirectory(cfg *config.Config, db *sql.DB) tokenpair.IdentityProvider {
	return identity.NewPostgresDirectory(db, cfg.DB.QueryTimeout)
}
