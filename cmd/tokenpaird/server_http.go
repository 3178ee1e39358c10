package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenpair"
	"github.com/MrEthical07/tokenpair/internal/config"
	promexport "github.com/MrEthical07/tokenpair/metrics/export/prometheus"
	"github.com/MrEthical07/tokenpair/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, engine *tokenpair.Engine, db *sql.DB, rdb *redis.Client) *http.Server {
	resources := http.NewServeMux()
	resources.HandleFunc("/api/user/whoami", whoami)
	resources.HandleFunc("/api/admin/whoami", whoami)

	pipeline := middleware.NewPipeline(engine, resources,
		middleware.WithLogger(logger.Named("http")),
		middleware.WithPublic(http.MethodGet, "/error", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			middleware.WriteError(w, r, http.StatusInternalServerError)
		})),
		middleware.WithPublic(http.MethodGet, "/healthz", healthz(db, rdb)),
	)

	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           otelhttp.NewHandler(pipeline, "tokenpaird"),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
}

func buildMetricsServer(cfg *config.Config, engine *tokenpair.Engine) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promexport.NewExporter(engine).Handler())
	return &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func healthz(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := db.PingContext(hctx); err != nil {
			http.Error(w, "unhealthy: db", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(hctx).Err(); err != nil {
				http.Error(w, "unhealthy: redis", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func whoami(w http.ResponseWriter, r *http.Request) {
	p, ok := tokenpair.PrincipalFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, http.StatusUnauthorized)
		return
	}
	roles := make([]string, 0, len(p.Roles))
	for _, role := range p.Roles {
		roles = append(roles, string(role))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"subject":    p.Subject,
		"roles":      roles,
		"expires_at": p.ExpiresAt,
	})
}
