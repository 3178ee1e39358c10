package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrEthical07/tokenpair/internal/config"
	"github.com/MrEthical07/tokenpair/internal/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// initDB opens the users database, applies migrations and, in development,
// seeds the demo accounts.
func initDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DB.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if cfg.DB.Migrate {
		if err := migrations.Up(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}
	if cfg.DB.Seed {
		if err := migrations.Seed(ctx, db, "password", migrations.DemoUsers); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("demo users seeded", zap.Int("count", len(migrations.DemoUsers)))
	}
	return db, nil
}
