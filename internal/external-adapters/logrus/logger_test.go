package logrus

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/prefetch/internal/domain/interfaces"
)

func TestLogger_Levels(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := Wrap(base)

	l.Debug("resolving", interfaces.F("software", "jdk"))
	l.Info("downloaded", interfaces.F("bytes", int64(42)))
	l.Warn("override", interfaces.F("version", "5"))
	l.Error("failed", interfaces.F("error", errors.New("boom")))

	entries := hook.AllEntries()
	require.Len(t, entries, 4)
	assert.Equal(t, logrus.DebugLevel, entries[0].Level)
	assert.Equal(t, "jdk", entries[0].Data["software"])
	assert.Equal(t, logrus.InfoLevel, entries[1].Level)
	assert.Equal(t, int64(42), entries[1].Data["bytes"])
	assert.Equal(t, logrus.WarnLevel, entries[2].Level)
	assert.Equal(t, logrus.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].Data["error"])
}

func TestLogger_With(t *testing.T) {
	base, hook := test.NewNullLogger()
	l := Wrap(base).With(interfaces.F("run_id", "abc"))

	l.Info("start", interfaces.F("targets", 3))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "abc", entry.Data["run_id"])
	assert.Equal(t, 3, entry.Data["targets"])
}

func TestNewLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, "warn", FormatText)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", interfaces.F("key", "jdk-version"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "key=jdk-version")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, "info", FormatJSON)
	require.NoError(t, err)

	l.Error("download failed", interfaces.F("error", errors.New("connection refused")))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "download failed", line["msg"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "connection refused", line["error"])
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "loud", FormatText)
	assert.Error(t, err)

	_, err = NewLogger(&bytes.Buffer{}, "info", "xml")
	assert.ErrorContains(t, err, "invalid log format")
}
