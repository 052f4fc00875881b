package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
)

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *LogEntry) error

// Logger captures interaction event logs for the interpreter.
type Logger struct {
	Record LogRecorder

	now func() time.Time
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(le *LogEntry) error {
			entry, err := json.Marshal(le)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewLockedFileRecorder creates a Logger that appends newline delimited JSON
// to path. Every write holds an exclusive lock on path+".lock" so several
// interpreters can share one log.
func NewLockedFileRecorder(path string) *Logger {
	lockPath := path + ".lock"
	return &Logger{
		Record: func(le *LogEntry) error {
			entry, err := json.Marshal(le)
			if err != nil {
				return err
			}

			lock := flock.New(lockPath)
			if err := lock.Lock(); err != nil {
				return fmt.Errorf("locking event log: %w", err)
			}
			defer func() { _ = lock.Unlock() }()

			fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(fd, string(entry)); err != nil {
				fd.Close()
				return err
			}
			return fd.Close()
		},
	}
}

// NewNopLogger creates a Logger that drops every event.
func NewNopLogger() *Logger {
	return &Logger{
		Record: func(*LogEntry) error { return nil },
	}
}

func (l *Logger) recordEvent(sessionID string, event Event) error {
	fields, err := structpb.NewStruct(event.Fields)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	now := time.Now
	if l.now != nil {
		now = l.now
	}

	return l.Record(&LogEntry{
		TimestampMicros: now().UnixMicro(),
		SessionID:       sessionID,
		Type:            event.Type,
		Fields:          fields,
	})
}

// NewSession creates a logger with attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: uuid.NewString()}
}

// Sessionless creates a logger without a session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ""}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID returns the ID attached to every entry.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

func (l *SessionLogger) Record(event Event) error {
	return l.recordEvent(l.sessionID, event)
}
