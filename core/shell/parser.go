// Package shell turns raw input lines into commands.
//
// Loosely following
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html
// the line is broken into words, and a trailing "&" asks for the command to
// run without the interpreter waiting for it. Operators other than the
// trailing "&" are not recognized: "&" anywhere else is an ordinary word.
package shell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anmitsu/go-shlex"
)

// BackgroundMarker is the final word that requests a background launch.
const BackgroundMarker = "&"

// DefaultMaxArgs bounds the argument vector when no limit is configured.
const DefaultMaxArgs = 64

// ErrSyntax is returned when quoting mode can't split a line, e.g. because
// of an unterminated quote.
var ErrSyntax = errors.New("syntax error")

// Command is a single parsed input line.
type Command struct {
	// Args holds the argument vector, Args[0] is the program or builtin name.
	Args []string
	// Background is set when the line ended with the background marker.
	Background bool
	// Truncated is set when words past the argument limit were dropped.
	Truncated bool
}

// Empty reports whether there is nothing to run.
func (c Command) Empty() bool {
	return len(c.Args) == 0
}

// Name returns the program or builtin name, or "" for an empty command.
func (c Command) Name() string {
	if c.Empty() {
		return ""
	}
	return c.Args[0]
}

// Parser splits lines into commands.
type Parser struct {
	maxArgs int
	quoting bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxArgs sets the maximum number of arguments kept, zero means no limit.
func WithMaxArgs(n int) Option {
	return func(p *Parser) {
		if n < 0 {
			n = 0
		}
		p.maxArgs = n
	}
}

// WithQuoting enables POSIX style single/double quotes and backslash escapes.
func WithQuoting(enabled bool) Option {
	return func(p *Parser) {
		p.quoting = enabled
	}
}

// NewParser creates a parser, by default splitting on blanks only with
// DefaultMaxArgs arguments.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxArgs: DefaultMaxArgs}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse splits line into a Command. Blank lines produce an empty Command.
func (p *Parser) Parse(line string) (Command, error) {
	words, err := p.split(line)
	if err != nil {
		return Command{}, err
	}

	var cmd Command
	if n := len(words); n > 0 && words[n-1] == BackgroundMarker {
		cmd.Background = true
		words = words[:n-1]
	}

	if p.maxArgs > 0 && len(words) > p.maxArgs {
		words = words[:p.maxArgs:p.maxArgs]
		cmd.Truncated = true
	}

	if len(words) > 0 {
		cmd.Args = words
	}
	return cmd, nil
}

func (p *Parser) split(line string) ([]string, error) {
	if !p.quoting {
		return strings.FieldsFunc(line, isBlank), nil
	}

	words, err := shlex.Split(line, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return words, nil
}

func isBlank(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}
