package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"development", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"production", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestGet_BeforeInitReturnsNop(t *testing.T) {
	mu.Lock()
	prev := global
	global = nil
	mu.Unlock()
	defer func() {
		mu.Lock()
		global = prev
		mu.Unlock()
	}()

	l := Get()
	require.NotNil(t, l)
	l.Info("discarded")
	assert.NoError(t, Sync())
}

func TestInit_SetsGlobal(t *testing.T) {
	mu.Lock()
	prev := global
	mu.Unlock()
	defer func() {
		mu.Lock()
		global = prev
		mu.Unlock()
	}()

	err := Init(&Config{Level: "debug", ServiceName: "event-booking", Development: true})
	require.NoError(t, err)
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestWithTrace(t *testing.T) {
	fields := withTrace(context.Background(), []zap.Field{zap.String("k", "v")})
	assert.Len(t, fields, 1)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields = withTrace(ctx, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "trace_id", fields[0].Key)
	assert.Equal(t, traceID.String(), fields[0].String)
}
