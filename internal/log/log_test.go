package log_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	appLog "studycal/internal/log"
)

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	appLog.SetLevel(appLog.LevelInfo)

	appLog.Debug("hidden", "k", 1)
	assert.Empty(t, buf.String())

	appLog.Info("normalize done", "events", 3, 42, "ignored", "odd")
	out := buf.String()
	assert.Contains(t, out, "normalize done")
	assert.Contains(t, out, "events=3")
	assert.NotContains(t, out, "ignored")

	buf.Reset()
	appLog.Error("store failed", errors.New("boom"), "driver", "file")
	assert.Contains(t, buf.String(), "error=boom")
	assert.Contains(t, buf.String(), "driver=file")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, appLog.LevelDebug, appLog.ParseLevel("debug"))
	assert.Equal(t, appLog.LevelWarn, appLog.ParseLevel("warning"))
	assert.Equal(t, appLog.LevelError, appLog.ParseLevel(" ERROR "))
	assert.Equal(t, appLog.LevelInfo, appLog.ParseLevel("verbose"))
}
