package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "engine")
	l.Debugw("optimization done", map[string]any{"revenue": 8})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "optimization done", line["message"])
	assert.EqualValues(t, 8, line["revenue"])
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	require.NoError(t, SetLevel("warn"))
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "x")
	l.Infof("hidden")
	assert.Zero(t, buf.Len())
	l.Warnf("shown")
	assert.NotZero(t, buf.Len())

	assert.NoError(t, SetLevel(""))
	assert.Error(t, SetLevel("loud"))
}
