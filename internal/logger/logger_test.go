package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("Writes structured fields", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWithWriter("debug", &buf)

		l.Info().Str("page_id", "home").Msg("Published")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "home", entry["page_id"])
		assert.Equal(t, "redux-content", entry["service"])
		assert.Equal(t, "Published", entry["message"])
	})

	t.Run("Invalid level defaults to info", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWithWriter("loud", &buf)

		assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
		l.Debug().Msg("hidden")
		assert.Zero(t, buf.Len())
	})

	t.Run("Sets the default context logger", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWithWriter("warn", &buf)

		assert.Equal(t, l.GetLevel(), zerolog.DefaultContextLogger.GetLevel())
	})
}
