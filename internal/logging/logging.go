// Package logging builds the service logger and a zap-backed audit sink.
package logging

import (
	"context"

	"github.com/MrEthical07/tokenpair"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level   string
	Pretty  bool
	Service string
	Env     string
	Version string
}

// New returns a production JSON logger, or a development console logger
// when Pretty is set. An unknown level falls back to info.
func New(c Config) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	level := new(zapcore.Level)
	if err := level.Set(c.Level); err != nil {
		*level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(*level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(
		zap.Fields(
			zap.String("service", c.Service),
			zap.String("env", c.Env),
			zap.String("version", c.Version),
		),
	)
}

// AuditSink writes audit events as structured log entries. Successes log
// at info, failures at warn.
type AuditSink struct {
	log *zap.Logger
}

var _ tokenpair.AuditSink = (*AuditSink)(nil)

func NewAuditSink(log *zap.Logger) *AuditSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditSink{log: log.Named("audit")}
}

func (s *AuditSink) Emit(_ context.Context, e tokenpair.AuditEvent) {
	fields := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.Time("at", e.Timestamp),
		zap.Bool("success", e.Success),
	}
	if e.Subject != "" {
		fields = append(fields, zap.String("subject", e.Subject))
	}
	if e.TokenID != "" {
		fields = append(fields, zap.String("token_id", e.TokenID))
	}
	if e.IP != "" {
		fields = append(fields, zap.String("ip", e.IP))
	}
	if e.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", e.UserAgent))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("reason", string(e.Error)))
	}
	for k, v := range e.Metadata {
		fields = append(fields, zap.String("meta."+k, v))
	}

	if e.Success {
		s.log.Info("audit", fields...)
		return
	}
	s.log.Warn("audit", fields...)
}
