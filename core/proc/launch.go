// Package proc resolves commands against the search path and runs them as
// child processes of the interpreter.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// Kind classifies why a launch failed.
type Kind int

const (
	// KindSpawn means the child could not be created at all, usually because
	// the system ran out of processes, memory or file descriptors.
	KindSpawn Kind = iota + 1
	// KindExec means the child was created but could not execute the image.
	KindExec
)

func (k Kind) String() string {
	switch k {
	case KindSpawn:
		return "fork failed"
	case KindExec:
		return "exec failed"
	default:
		return "launch failed"
	}
}

// LaunchError is returned when a child process could not be started. It is
// never fatal to the interpreter.
type LaunchError struct {
	Name string
	Kind Kind
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Name, e.Kind, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// LaunchResult describes a started child. ExitStatus is only meaningful for
// foreground launches.
type LaunchResult struct {
	PID        int
	ExitStatus int
}

// Launcher starts children with the interpreter's standard streams and
// environment.
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Env holds the child environment, nil means the interpreter's own.
	Env []string

	// background holds handles of children that were not waited on yet.
	background map[int]*os.Process
}

// NewLauncher creates a launcher bound to the given streams.
func NewLauncher(stdin io.Reader, stdout, stderr io.Writer, env []string) *Launcher {
	return &Launcher{
		Stdin:      stdin,
		Stdout:     stdout,
		Stderr:     stderr,
		Env:        env,
		background: make(map[int]*os.Process),
	}
}

// Launch executes path with args as its argument vector, args[0] is the name
// the program sees.
//
// Foreground launches block until that specific child exits and report its
// exit status. Background launches return as soon as the child is running;
// the child is moved into its own process group so signals from the
// terminal meant for the foreground job never reach it.
func (l *Launcher) Launch(ctx context.Context, path string, args []string, background bool) (LaunchResult, error) {
	if len(args) == 0 {
		args = []string{path}
	}
	// A bare name would make exec search its own PATH.
	if !strings.ContainsRune(path, filepath.Separator) {
		path = "." + string(filepath.Separator) + path
	}

	var cmd *exec.Cmd
	if background {
		cmd = exec.Command(path, args[1:]...)
		cmd.SysProcAttr = backgroundSysProcAttr()
		// Nothing drains pipes after launch, so only real files are passed on.
		cmd.Stdout = fileOrNil(l.Stdout)
		cmd.Stderr = fileOrNil(l.Stderr)
	} else {
		cmd = exec.CommandContext(ctx, path, args[1:]...)
		cmd.Stdin = l.Stdin
		cmd.Stdout = l.Stdout
		cmd.Stderr = l.Stderr
	}
	cmd.Args = append([]string(nil), args...)
	cmd.Env = l.Env

	if err := cmd.Start(); err != nil {
		return LaunchResult{}, classifyStartError(args[0], err)
	}

	res := LaunchResult{PID: cmd.Process.Pid}
	if background {
		if l.background == nil {
			l.background = make(map[int]*os.Process)
		}
		l.background[res.PID] = cmd.Process
		return res, nil
	}

	// Terminal generated signals go to the whole foreground process group,
	// the child decides what to do with them and the interpreter survives.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, foregroundSignals...)
	defer signal.Stop(sigs)

	err := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitStatus = 0
	case errors.As(err, &exitErr):
		res.ExitStatus = exitStatus(exitErr.ProcessState)
	default:
		return res, fmt.Errorf("waiting for %s: %w", args[0], err)
	}
	return res, nil
}

// release forgets a background child's handle once it was reaped.
func (l *Launcher) release(pid int) {
	if p, ok := l.background[pid]; ok {
		_ = p.Release()
		delete(l.background, pid)
	}
}

func classifyStartError(name string, err error) error {
	kind := KindExec
	if isResourceExhausted(err) {
		kind = KindSpawn
	}
	return &LaunchError{Name: name, Kind: kind, Err: err}
}

func isResourceExhausted(err error) bool {
	for _, errno := range []syscall.Errno{syscall.EAGAIN, syscall.ENOMEM, syscall.EMFILE, syscall.ENFILE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

func fileOrNil(w io.Writer) io.Writer {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
