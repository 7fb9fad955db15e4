//go:build unit

package zerologlogger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hugolhafner/go-consumer/logger"
	"github.com/hugolhafner/go-consumer/plugins/zerologlogger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_WritesFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := zerologlogger.New(zerolog.New(&buf).Level(zerolog.DebugLevel)).With("partition", 3)

	l.Error("fetch failed", "error", errors.New("broker down"), "offset", 12)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "fetch failed", entry["message"])
	require.Equal(t, "broker down", entry["error"])
	require.EqualValues(t, 3, entry["partition"])
	require.EqualValues(t, 12, entry["offset"])
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := zerologlogger.New(zerolog.New(&buf).Level(zerolog.WarnLevel))

	require.Equal(t, logger.WarnLevel, l.Level())

	l.Info("ignored")
	require.Zero(t, buf.Len())
}
