package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := newLogger()

	assert.NotNil(t, logger)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
}

func TestGetLogger_WithContextLogger(t *testing.T) {
	ctx := WithLogger(context.Background(), logrus.NewEntry(logrus.New()).WithField("file", "SKILL.md"))

	entry := G(ctx)
	assert.Equal(t, "SKILL.md", entry.Data["file"])
}

func TestGetLogger_WithoutContextLogger(t *testing.T) {
	entry := G(context.Background())

	require.NotNil(t, entry)
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithFields(t *testing.T) {
	ctx := WithLogger(context.Background(), logrus.NewEntry(logrus.New()).WithField("run_id", "abc"))
	ctx = WithFields(ctx, logrus.Fields{"component_type": "skill"})

	entry := G(ctx)
	assert.Equal(t, "abc", entry.Data["run_id"])
	assert.Equal(t, "skill", entry.Data["component_type"])
}

func TestSetLogLevel(t *testing.T) {
	original := L.Logger.GetLevel()
	defer L.Logger.SetLevel(original)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("loud"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
}

func TestSetLogFormatJSON(t *testing.T) {
	originalFormatter := L.Logger.Formatter
	originalOut := L.Logger.Out
	originalLevel := L.Logger.GetLevel()
	defer func() {
		L.Logger.Formatter = originalFormatter
		L.Logger.SetOutput(originalOut)
		L.Logger.SetLevel(originalLevel)
	}()

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogFormat("json")
	L.Logger.SetLevel(logrus.InfoLevel)

	G(context.Background()).WithField("file", "agents/a.md").Info("validated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "validated", entry["message"])
	assert.Equal(t, "info", entry["logLevel"])
	assert.Equal(t, "agents/a.md", entry["file"])
	assert.Contains(t, entry, "timestamp")
}
