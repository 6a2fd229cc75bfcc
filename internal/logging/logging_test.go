package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordermgmt/internal/logging"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, watermill.LevelTrace, logging.ParseLevel("TRACE"))
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("loud"))
}

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New(buf, "info")

	logger.Debug("hidden", nil)
	logger.Error("Handler failed", errors.New("boom"), watermill.LogFields{"handler": "CacheHandler"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "Handler failed", record["msg"])
	assert.Equal(t, "CacheHandler", record["handler"])
	assert.Equal(t, "boom", record["error"])
}
