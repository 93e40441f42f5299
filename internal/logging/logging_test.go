package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", FormatJSON, &buf)
	require.NoError(t, err)

	pipelineLogger := Component(logger, "pipeline")
	pipelineLogger.Info().Msg("dropped")
	pipelineLogger.Warn().Str("mint", "m1").Msg("rejected")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, "m1", entry["mint"])
	assert.Equal(t, "rejected", entry["message"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", "", &buf)
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Msg("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", FormatJSON, nil)
	assert.Error(t, err)

	_, err = New("info", "xml", nil)
	assert.Error(t, err)
}
