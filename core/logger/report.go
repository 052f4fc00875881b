package logger

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       int        `json:"sessions"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	RunCommand     RunCommandReport     `json:"run_command_report"`
	UnknownCommand UnknownCommandReport `json:"unknown_command_report"`
	LaunchFailure  LaunchFailureReport  `json:"launch_failure_report"`
	Exit           ExitReport           `json:"exit_report"`
	Jobs           JobReport            `json:"job_report"`
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	switch le.Type {
	case EventSessionStart:
		r.Sessions++
	case EventRunCommand:
		r.RunCommand.update(le)
	case EventUnknownCommand:
		r.UnknownCommand.update(le)
	case EventLaunchFailure:
		r.LaunchFailure.update(le)
	case EventCommandExit:
		r.Exit.update(le)
	case EventJobDone, EventJobSignal:
		r.Jobs.update(le)
	case EventSessionEnd:
		// Ignore
	default:
		r.InvalidEntries.Increment(string(le.Type))
	}
}

type RunCommandReport struct {
	// Name of the resolved command
	ResolvedCommandPaths StrCounter `json:"resolved_command_paths"`
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
	Background   int        `json:"background"`
}

func (r *RunCommandReport) update(le *LogEntry) {
	r.ResolvedCommandPaths.Increment(le.GetString("resolved_path"))
	if command := le.GetStrings("command"); len(command) > 0 {
		r.CommandNames.Increment(command[0])
	}
	if le.GetBool("background") {
		r.Background++
	}
}

type UnknownCommandReport struct {
	CommandNames StrCounter `json:"command_names"`
}

func (r *UnknownCommandReport) update(le *LogEntry) {
	if command := le.GetStrings("command"); len(command) > 0 {
		r.CommandNames.Increment(command[0])
	}
}

type LaunchFailureReport struct {
	Failures *PathCounter `json:"failures"`
}

func (r *LaunchFailureReport) update(le *LogEntry) {
	if r.Failures == nil {
		r.Failures = NewPathCounter("command", "kind")
	}

	var name string
	if command := le.GetStrings("command"); len(command) > 0 {
		name = command[0]
	}
	r.Failures.Increment(name, le.GetString("kind"))
}

type ExitReport struct {
	// Exit statuses of foreground commands.
	Statuses StrCounter `json:"statuses"`
	// Commands that exited with a non-zero status.
	Failed StrCounter `json:"failed"`
}

func (r *ExitReport) update(le *LogEntry) {
	status := le.GetInt("status")
	r.Statuses.Increment(strconv.Itoa(status))
	if status != 0 {
		r.Failed.Increment(le.GetString("name"))
	}
}

type JobReport struct {
	Completed int        `json:"completed"`
	Signals   StrCounter `json:"signals"`
	Statuses  StrCounter `json:"statuses"`
}

func (r *JobReport) update(le *LogEntry) {
	switch le.Type {
	case EventJobDone:
		r.Completed++
		r.Statuses.Increment(strconv.Itoa(le.GetInt("status")))
	case EventJobSignal:
		r.Signals.Increment(le.GetString("signal"))
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns the number of times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of tuples seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Count returns the number of times the tuple was seen.
func (ctr *PathCounter) Count(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implements custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	return strings.Join(vals, "\x00")
}

func fromKey(key string) []string {
	return strings.Split(key, "\x00")
}
