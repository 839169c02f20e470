package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextPairs(t *testing.T) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	logger := New(l).With("component", "replay")

	logger.Debug("directory cleanup skipped", "directory", "AB", "result", "not-found")

	require.Len(t, hook.Entries, 1)
	e := hook.LastEntry()
	assert.Equal(t, logrus.DebugLevel, e.Level)
	assert.Equal(t, "directory cleanup skipped", e.Message)
	assert.Equal(t, "replay", e.Data["component"])
	assert.Equal(t, "AB", e.Data["directory"])
	assert.Equal(t, "not-found", e.Data["result"])
}

func TestOddContext(t *testing.T) {
	l, hook := test.NewNullLogger()
	New(l).Info("msg", "lonely")
	require.Len(t, hook.Entries, 1)
	assert.Contains(t, hook.LastEntry().Data, "LOG_ERROR")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	configure(l, &buf, logrus.InfoLevel, true, false)

	New(l).Info("ledger replayed", "ledger", 42)
	New(l).Debug("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ledger replayed", line["msg"])
	assert.Equal(t, float64(42), line["ledger"])
}

func TestSetLoggerRejectsBadLevel(t *testing.T) {
	assert.Error(t, SetLogger("loud", false, false))
}
