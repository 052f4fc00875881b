//go:build unix

package proc

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

var foregroundSignals = []os.Signal{unix.SIGINT, unix.SIGQUIT}

func backgroundSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		// New process group, detached from the terminal's foreground group.
		Setpgid: true,
	}
}

// Reap checks without blocking whether the background child pid exited. A
// child that is already gone (ECHILD) counts as exited with status -1.
func (l *Launcher) Reap(pid int) (exited bool, status int, err error) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
	switch {
	case errors.Is(err, unix.ECHILD):
		l.release(pid)
		return true, -1, nil
	case errors.Is(err, unix.EINTR):
		return false, 0, nil
	case err != nil:
		return false, 0, err
	case wpid == 0:
		return false, 0, nil
	}

	if !ws.Exited() && !ws.Signaled() {
		// Stopped or continued, still alive.
		return false, 0, nil
	}

	l.release(pid)
	return true, waitStatusCode(ws), nil
}

// Signal delivers sig to the process pid.
func (l *Launcher) Signal(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

// ParseSignal resolves names like "TERM", "SIGTERM" or "15".
func ParseSignal(name string) (syscall.Signal, bool) {
	if name == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n <= 0 || unix.SignalName(syscall.Signal(n)) == "" {
			return 0, false
		}
		return syscall.Signal(n), true
	}
	name = strings.ToUpper(name)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	return sig, sig != 0
}

func waitStatusCode(ws unix.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}

func exitStatus(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		return waitStatusCode(unix.WaitStatus(ws))
	}
	return state.ExitCode()
}
