//go:build !unix

package proc

import (
	"errors"
	"os"
	"syscall"
)

// ErrUnsupported is returned by job control operations on platforms without
// POSIX process management.
var ErrUnsupported = errors.New("job control is not supported on this platform")

var foregroundSignals = []os.Signal{os.Interrupt}

func backgroundSysProcAttr() *syscall.SysProcAttr {
	return nil
}

// Reap is not supported on this platform.
func (l *Launcher) Reap(pid int) (exited bool, status int, err error) {
	return false, 0, ErrUnsupported
}

// Signal is not supported on this platform.
func (l *Launcher) Signal(pid int, sig syscall.Signal) error {
	return ErrUnsupported
}

// ParseSignal only knows the default termination signal on this platform.
func ParseSignal(name string) (syscall.Signal, bool) {
	switch name {
	case "TERM", "SIGTERM", "15":
		return syscall.SIGTERM, true
	}
	return 0, false
}

func exitStatus(state *os.ProcessState) int {
	return state.ExitCode()
}
