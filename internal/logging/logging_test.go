package logging

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/tokenpair"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	l, err := New(Config{Level: "debug", Service: "tokenpaird"})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(Config{Level: "bogus", Pretty: true})
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestAuditSinkLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewAuditSink(zap.New(core))

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.Emit(context.Background(), tokenpair.AuditEvent{
		Timestamp: at,
		EventType: "login_success",
		Subject:   "i.ivanov@test.com",
		TokenID:   "6f1c1a52-1d2c-4e5f-9a0b-1c2d3e4f5a6b",
		Success:   true,
	})
	sink.Emit(context.Background(), tokenpair.AuditEvent{
		Timestamp: at,
		EventType: "logout_failure",
		Error:     "revoked",
		Metadata:  map[string]string{"kind": "refresh"},
	})

	entries := logs.All()
	require.Len(t, entries, 2)

	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "audit", entries[0].LoggerName)
	ctx := entries[0].ContextMap()
	require.Equal(t, "login_success", ctx["event"])
	require.Equal(t, "i.ivanov@test.com", ctx["subject"])
	require.NotContains(t, ctx, "reason")

	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	ctx = entries[1].ContextMap()
	require.Equal(t, "revoked", ctx["reason"])
	require.Equal(t, "refresh", ctx["meta.kind"])
	require.NotContains(t, ctx, "subject")
}
