// Command tokenpaird serves login, refresh and logout over HTTP and guards
// the /api resources with the issued access tokens.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/tokenpair"
	"github.com/MrEthical07/tokenpair/internal/config"
	"github.com/MrEthical07/tokenpair/internal/logging"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("TOKENPAIR_CONFIG"), "path to a YAML config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Version: cfg.Service.Version,
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting tokenpaird",
		zap.String("env", cfg.Service.Env),
		zap.String("ledger", cfg.Ledger.Backend),
	)

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		logger.Fatal("engine config", zap.Error(err))
	}

	db, err := initDB(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb, err := initRedis(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store, closeLedger, err := initLedger(rootCtx, cfg, logger, db, rdb)
	if err != nil {
		logger.Fatal("ledger init", zap.Error(err))
	}
	defer closeLedger()

	builder := tokenpair.New().
		WithConfig(engineCfg).
		WithLedger(store).
		WithIdentityProvider(newDirectory(cfg, db)).
		WithAuditSink(logging.NewAuditSink(logger))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	engine, err := builder.Build()
	if err != nil {
		logger.Fatal("engine build", zap.Error(err))
	}
	defer engine.Close()

	httpSrv := buildHTTPServer(cfg, logger, engine, db, rdb)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	metricsErrCh := make(chan error, 1)
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = buildMetricsServer(cfg, engine)
		go func() { metricsErrCh <- serveHTTP(metricsSrv, logger) }()
	}

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case runErr = <-httpErrCh:
	case runErr = <-metricsErrCh:
	}
	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		logger.Error("http serve", zap.Error(runErr))
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shCtx)
	}
	logger.Info("bye", zap.Uint64("audit_dropped", engine.AuditDropped()))
}
