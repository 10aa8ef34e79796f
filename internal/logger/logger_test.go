package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	t.Run("json output at the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		SetupWriter(&buf, "warn", false)

		log.Info().Msg("hidden")
		log.Warn().Str("owner", "u1").Msg("shown")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "shown", entry["message"])
		assert.Equal(t, "u1", entry["owner"])
		assert.Contains(t, entry, "time")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		SetupWriter(&buf, "chatty", false)

		log.Debug().Msg("hidden")
		log.Info().Msg("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("console writer in development", func(t *testing.T) {
		var buf bytes.Buffer
		SetupWriter(&buf, "debug", true)

		log.Debug().Msg("pretty")

		assert.Contains(t, buf.String(), "pretty")
		assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
	})
}
