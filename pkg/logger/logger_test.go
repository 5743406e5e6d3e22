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

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	Setup(Config{Level: "warn", Format: "json", Output: &buf})
	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "v", entry["k"])
	assert.Equal(t, "care-portal", entry["service"])
}

func TestSetup_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	l := Setup(Config{Level: "loud", Output: &buf})
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}
