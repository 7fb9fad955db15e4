//go:build unit

package logger_test

import (
	"testing"

	"github.com/hugolhafner/go-consumer/logger"
	mocklogger "github.com/hugolhafner/go-consumer/logger/mock"
	"github.com/stretchr/testify/require"
)

type levelBase struct {
	*mocklogger.MockLogger
	level logger.LogLevel
}

func (b levelBase) Level() logger.LogLevel {
	return b.level
}

func TestLevelWrapper_FiltersBelowLevel(t *testing.T) {
	t.Parallel()

	m := mocklogger.New()
	l := logger.WrapLogger(levelBase{MockLogger: m, level: logger.WarnLevel})

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	m.AssertNotCalledWithMessage(t, "debug")
	m.AssertNotCalledWithMessage(t, "info")
	m.AssertCalledWithLevelAndMessage(t, logger.WarnLevel, "warn")
	m.AssertCalledWithLevelAndMessage(t, logger.ErrorLevel, "error")
}

func TestLevelWrapper_With(t *testing.T) {
	t.Parallel()

	m := mocklogger.New()
	base := logger.WrapLogger(levelBase{MockLogger: m, level: logger.DebugLevel})
	scoped := base.With("topic", "orders", "partition", int32(3))

	scoped.Info("fetched", "count", 2)
	base.Info("plain")

	entries := m.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, []any{"topic", "orders", "partition", int32(3), "count", 2}, entries[0].KV)
	require.Empty(t, entries[1].KV)
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level logger.LogLevel
		want  string
	}{
		{logger.DebugLevel, "debug"},
		{logger.InfoLevel, "info"},
		{logger.WarnLevel, "warn"},
		{logger.ErrorLevel, "error"},
		{logger.LogLevel(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(
			tt.want, func(t *testing.T) {
				t.Parallel()
				require.Equal(t, tt.want, tt.level.String())
			},
		)
	}
}
