package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf})

	l.Debug("hidden")
	l.Warn("slot already booked", "doctor_id", "d-1", "date", "2024-01-01")
	l.WithFields(map[string]interface{}{"component": "booking"}).Error(errors.New("boom"), "booking failed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "warn", first["level"])
	assert.Equal(t, "d-1", first["doctor_id"])
	assert.Equal(t, "2024-01-01", first["date"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "boom", second["error"])
	assert.Equal(t, "booking", second["component"])
}
