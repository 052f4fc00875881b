package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, data []byte) []*LogEntry {
	t.Helper()

	var out []*LogEntry
	err := ReadJSONLinesLog(bytes.NewReader(data), func(le *LogEntry) {
		out = append(out, le)
	})
	require.NoError(t, err)
	return out
}

func TestJsonLinesLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	l := NewJsonLinesLogRecorder(&buf)
	l.now = func() time.Time { return time.UnixMicro(1234567) }
	session := l.NewSession()

	require.NoError(t, session.Record(RunCommand([]string{"sleep", "10"}, "/bin/sleep", true, 42)))
	require.NoError(t, session.Record(CommandExit("false", 43, 1)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2, "one entry per line")

	entries := readAll(t, buf.Bytes())
	require.Len(t, entries, 2)

	run := entries[0]
	assert.Equal(t, EventRunCommand, run.Type)
	assert.Equal(t, session.SessionID(), run.SessionID)
	assert.Equal(t, int64(1234567), run.TimestampMicros)
	assert.Equal(t, []string{"sleep", "10"}, run.GetStrings("command"))
	assert.Equal(t, "/bin/sleep", run.GetString("resolved_path"))
	assert.True(t, run.GetBool("background"))
	assert.Equal(t, 42, run.GetInt("pid"))

	exit := entries[1]
	assert.Equal(t, EventCommandExit, exit.Type)
	assert.Equal(t, "false", exit.GetString("name"))
	assert.Equal(t, 1, exit.GetInt("status"))
}

func TestSessionIDs(t *testing.T) {
	l := NewNopLogger()

	a, b := l.NewSession(), l.NewSession()
	assert.NotEqual(t, a.SessionID(), b.SessionID())
	_, err := uuid.Parse(a.SessionID())
	assert.NoError(t, err)

	assert.Empty(t, l.Sessionless().SessionID())
}

func TestRecord_Error(t *testing.T) {
	boom := errors.New("boom")
	l := &Logger{Record: func(*LogEntry) error { return boom }}
	assert.ErrorIs(t, l.Sessionless().Record(SessionEnd(0, 0)), boom)

	bad := Event{Type: "bad", Fields: map[string]interface{}{"chan": make(chan int)}}
	assert.Error(t, NewNopLogger().Sessionless().Record(bad))
}

func TestLogEntry_MissingFields(t *testing.T) {
	entries := readAll(t, []byte(`{"type": "job_done"}`+"\n"))
	require.Len(t, entries, 1)

	le := entries[0]
	assert.Equal(t, EventJobDone, le.Type)
	assert.Empty(t, le.SessionID)
	assert.Zero(t, le.GetInt("status"))
	assert.Empty(t, le.GetString("name"))
	assert.Nil(t, le.GetStrings("command"))
}

func TestReadJSONLinesLog_Invalid(t *testing.T) {
	err := ReadJSONLinesLog(strings.NewReader("{not json"), func(*LogEntry) {})
	assert.Error(t, err)
}

func TestLockedFileRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	const writers, perWriter = 4, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session := NewLockedFileRecorder(path).NewSession()
			for j := 0; j < perWriter; j++ {
				assert.NoError(t, session.Record(UnknownCommand([]string{"nope", strings.Repeat("x", 512)})))
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	sessions := make(map[string]int)
	for _, le := range readAll(t, data) {
		sessions[le.SessionID]++
	}
	assert.Len(t, sessions, writers)
	for id, count := range sessions {
		assert.Equal(t, perWriter, count, id)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
