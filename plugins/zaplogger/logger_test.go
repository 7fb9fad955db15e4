//go:build unit

package zaplogger_test

import (
	"errors"
	"testing"

	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/plugins/zaplogger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Fields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	l := zaplogger.New(zap.New(core)).With("topic", "orders")

	l.Warn("commit rejected", "offset", int64(44), "error", errors.New("conflict"), 7, "dropped")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, zap.WarnLevel, entries[0].Level)
	require.Equal(t, "commit rejected", entries[0].Message)

	ctx := entries[0].ContextMap()
	require.Equal(t, "orders", ctx["topic"])
	require.Equal(t, int64(44), ctx["offset"])
	require.Equal(t, "conflict", ctx["error"])
	require.Len(t, ctx, 3)
}

func TestZapLogger_Level(t *testing.T) {
	t.Parallel()

	core, _ := observer.New(zap.WarnLevel)
	l := zaplogger.New(zap.New(core))

	require.Equal(t, logger.WarnLevel, l.Level())
}
