package tracelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"
)

// newTestLogger installs a JSON root logger writing into a buffer and
// restores the previous root logger when the test ends.
func newTestLogger(t *testing.T) (log.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer

	original := log.Root()
	t.Cleanup(func() {
		log.SetDefault(original)
	})

	glogger := log.NewGlogHandler(log.JSONHandler(&buf))
	glogger.Verbosity(log.LevelTrace)
	log.SetDefault(log.NewLogger(glogger))

	return New(), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	return record
}

func TestWrappedErrorIsLogged(t *testing.T) {
	logger, buf := newTestLogger(t)

	logger.Error("Replay failed", "err", stacktrace.Wrap(errors.New("header not found")))

	record := decodeLine(t, buf)
	assert.Equal(t, "Replay failed", record["msg"])
	assert.Equal(t, true, record["tracing"])
	assert.Contains(t, buf.String(), "header not found")
}

func TestNewWithAddsContext(t *testing.T) {
	logger, buf := newTestLogger(t)

	NewWith("component", "cache").Info("Entry evicted", "hash", "0x01")
	_ = logger

	record := decodeLine(t, buf)
	assert.Equal(t, "cache", record["component"])
	assert.Equal(t, "0x01", record["hash"])
	assert.Equal(t, true, record["tracing"])
}

func TestPlainValuesUnderErrKeysAreKept(t *testing.T) {
	logger, buf := newTestLogger(t)

	logger.Warn("Odd attributes", "errors", 3, "dangling")

	record := decodeLine(t, buf)
	assert.EqualValues(t, 3, record["errors"])
}
