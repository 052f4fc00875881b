package logger

// Event is a payload waiting to be recorded.
type Event struct {
	Type   EventType
	Fields map[string]interface{}
}

func stringList(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// SessionStart is recorded once when the interpreter starts.
func SessionStart(pid int, searchPath string, maxJobs int) Event {
	return Event{Type: EventSessionStart, Fields: map[string]interface{}{
		"pid":         pid,
		"search_path": searchPath,
		"max_jobs":    maxJobs,
	}}
}

// RunCommand is recorded after a program was launched.
func RunCommand(command []string, resolvedPath string, background bool, pid int) Event {
	return Event{Type: EventRunCommand, Fields: map[string]interface{}{
		"command":       stringList(command),
		"resolved_path": resolvedPath,
		"background":    background,
		"pid":           pid,
	}}
}

// UnknownCommand is recorded when a name couldn't be resolved.
func UnknownCommand(command []string) Event {
	return Event{Type: EventUnknownCommand, Fields: map[string]interface{}{
		"command": stringList(command),
	}}
}

// LaunchFailure is recorded when a resolved program couldn't be started.
func LaunchFailure(command []string, kind string, err error) Event {
	return Event{Type: EventLaunchFailure, Fields: map[string]interface{}{
		"command": stringList(command),
		"kind":    kind,
		"error":   err.Error(),
	}}
}

// CommandExit is recorded when a foreground program finishes.
func CommandExit(name string, pid, status int) Event {
	return Event{Type: EventCommandExit, Fields: map[string]interface{}{
		"name":   name,
		"pid":    pid,
		"status": status,
	}}
}

// JobDone is recorded when a background job is reaped.
func JobDone(name string, pid, status int) Event {
	return Event{Type: EventJobDone, Fields: map[string]interface{}{
		"name":   name,
		"pid":    pid,
		"status": status,
	}}
}

// JobSignal is recorded when kill delivers a signal to a background job.
func JobSignal(pid int, signal string) Event {
	return Event{Type: EventJobSignal, Fields: map[string]interface{}{
		"pid":    pid,
		"signal": signal,
	}}
}

// SessionEnd is recorded when the interpreter loop returns.
func SessionEnd(status, liveJobs int) Event {
	return Event{Type: EventSessionEnd, Fields: map[string]interface{}{
		"status":    status,
		"live_jobs": liveJobs,
	}}
}
