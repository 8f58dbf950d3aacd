package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observe swaps the process logger for an in-memory one for the duration of the test
func observe(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := log
	log = zap.New(core)
	t.Cleanup(func() { log = previous })
	return logs
}

func TestWithFields(t *testing.T) {
	logs := observe(t)

	ctx := WithFields(context.Background(), zap.String("request_id", "req-1"))
	ctx = WithFields(ctx, zap.String("wallet", "0xabc"))
	InfoCtx(ctx, "Listing created", zap.String("listing_id", "01H"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "0xabc", fields["wallet"])
	assert.Equal(t, "01H", fields["listing_id"])
}

func TestWithFields_NoFields(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithFields(ctx))
	assert.Empty(t, contextFields(ctx))
}

func TestWithFields_ParentUnchanged(t *testing.T) {
	parent := WithFields(context.Background(), zap.String("asset", "eip155:1:0xabc:1"))
	_ = WithFields(parent, zap.String("seller", "0xdef"))

	assert.Len(t, contextFields(parent), 1)
}

func TestErrorCtx(t *testing.T) {
	logs := observe(t)

	ErrorCtx(context.Background(), errors.New("settlement failed"), zap.String("listing_id", "01H"))
	Error(nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "settlement failed", entries[0].Message)
	assert.Equal(t, "error occurred", entries[1].Message)
}

func TestTagFields(t *testing.T) {
	fields := tagFields(map[string]string{"service": "indexer", "chain": "eip155:1"})

	require.Len(t, fields, 2)
	assert.Equal(t, "chain", fields[0].Key)
	assert.Equal(t, "service", fields[1].Key)
	assert.Empty(t, tagFields(nil))
}
