package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("prod", &buf)
	log.Info().Str("doctor_id", "d1").Msg("booked")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "booked", line["message"])
	assert.Equal(t, "d1", line["doctor_id"])
	assert.Contains(t, line, "time")
}

func TestNewWithWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("dev", &buf)
	log.Warn().Msg("slot busy")

	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "slot busy")
	assert.False(t, json.Valid(buf.Bytes()))
}
