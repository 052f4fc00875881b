package logger

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventType names the kind of event recorded in a LogEntry.
type EventType string

const (
	EventSessionStart   EventType = "session_start"
	EventRunCommand     EventType = "run_command"
	EventUnknownCommand EventType = "unknown_command"
	EventLaunchFailure  EventType = "launch_failure"
	EventCommandExit    EventType = "command_exit"
	EventJobDone        EventType = "job_done"
	EventJobSignal      EventType = "job_signal"
	EventSessionEnd     EventType = "session_end"
)

// LogEntry is a single recorded event.
type LogEntry struct {
	TimestampMicros int64
	SessionID       string
	Type            EventType
	Fields          *structpb.Struct
}

// GetString returns the string field key, or "" if it's missing.
func (le *LogEntry) GetString(key string) string {
	return le.Fields.GetFields()[key].GetStringValue()
}

// GetInt returns the numeric field key, or 0 if it's missing.
func (le *LogEntry) GetInt(key string) int {
	return int(le.Fields.GetFields()[key].GetNumberValue())
}

// GetBool returns the boolean field key, or false if it's missing.
func (le *LogEntry) GetBool(key string) bool {
	return le.Fields.GetFields()[key].GetBoolValue()
}

// GetStrings returns the list field key, or nil if it's missing.
func (le *LogEntry) GetStrings(key string) []string {
	var out []string
	for _, v := range le.Fields.GetFields()[key].GetListValue().GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}

// MarshalJSON encodes the entry as a single line protojson object.
func (le *LogEntry) MarshalJSON() ([]byte, error) {
	fields := le.Fields
	if fields == nil {
		fields = &structpb.Struct{}
	}

	msg := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"timestamp_micros": structpb.NewNumberValue(float64(le.TimestampMicros)),
			"session_id":       structpb.NewStringValue(le.SessionID),
			"type":             structpb.NewStringValue(string(le.Type)),
			"fields":           structpb.NewStructValue(fields),
		},
	}
	return protojson.Marshal(msg)
}

// UnmarshalJSON decodes an entry produced by MarshalJSON.
func (le *LogEntry) UnmarshalJSON(data []byte) error {
	var msg structpb.Struct
	if err := protojson.Unmarshal(data, &msg); err != nil {
		return err
	}

	f := msg.GetFields()
	le.TimestampMicros = int64(f["timestamp_micros"].GetNumberValue())
	le.SessionID = f["session_id"].GetStringValue()
	le.Type = EventType(f["type"].GetStringValue())
	le.Fields = f["fields"].GetStructValue()
	if le.Fields == nil {
		le.Fields = &structpb.Struct{}
	}
	return nil
}
