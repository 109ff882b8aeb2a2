package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterTagsService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("racesim", &buf)
	log.Info().Int("lap", 2).Msg("lap complete")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "racesim", line["service"])
	assert.Equal(t, "lap complete", line["message"])
	assert.Equal(t, float64(2), line["lap"])
	assert.Contains(t, line, "time")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("trace"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestSetLevelFiltersBelowThreshold(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	SetLevel("error")
	var buf bytes.Buffer
	log := NewWithWriter("raceserver", &buf)
	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
	log.Error().Msg("kept")
	assert.NotZero(t, buf.Len())
}
