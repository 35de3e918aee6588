package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestLoggerWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewLogger(path)
	require.NoError(t, err)

	require.NoError(t, logger.LogRunStart("run-1", "mock", "test-model"))
	require.NoError(t, logger.LogModelResponse("run-1", 1, 2, 100, 50))
	require.NoError(t, logger.LogToolComplete("run-1", "get_ib_errors", true, 12))
	require.NoError(t, logger.LogRunComplete("run-1", "Completed", 2, 1))
	require.NoError(t, logger.Close())

	events := readEvents(t, path)
	require.Len(t, events, 4)
	assert.Equal(t, EventTypeRunStart, events[0].Type)
	assert.Equal(t, "run-1", events[0].RunID)
	assert.Equal(t, "mock", events[0].Data["provider"])
	assert.Equal(t, EventTypeModelResponse, events[1].Type)
	assert.Equal(t, float64(2), events[1].Data["tool_calls"])
	assert.Equal(t, EventTypeToolComplete, events[2].Type)
	assert.Equal(t, true, events[2].Data["success"])
	assert.Equal(t, EventTypeRunComplete, events[3].Type)
	assert.Equal(t, "Completed", events[3].Data["state"])
}

func TestLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	logger, err := NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.LogRunStart("run-1", "mock", "m"))
	require.NoError(t, logger.Close())

	logger, err = NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.LogRunStart("run-2", "mock", "m"))
	require.NoError(t, logger.Close())

	events := readEvents(t, path)
	require.Len(t, events, 2)
	assert.Equal(t, "run-2", events[1].RunID)
}
