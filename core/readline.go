package core

import (
	"io"

	"github.com/abiosoft/readline"
)

// NewTerminalReader creates a LineReader with line editing on top of stdin.
func NewTerminalReader(stdin io.Reader, stdout, stderr io.Writer, isTerminal bool) (LineReader, error) {
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(stdin),
		Stdout: stdout,
		Stderr: stderr,

		FuncIsTerminal: func() bool {
			return isTerminal
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	return rl, nil
}
