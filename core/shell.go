package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/bshell/core/config"
	"github.com/josephlewis42/bshell/core/jobs"
	"github.com/josephlewis42/bshell/core/logger"
	"github.com/josephlewis42/bshell/core/proc"
	"github.com/josephlewis42/bshell/core/shell"
	"github.com/spf13/afero"
)

const (
	EnvHome = "HOME"
	EnvUser = "USER"

	DefaultPrompt = `\w\$ `
)

// Exit statuses for commands that never ran.
const (
	StatusSyntaxError = 2
	StatusCannotRun   = 126
	StatusNotFound    = 127
)

// LineReader supplies input lines, one per call.
type LineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
	Close() error
}

// Options holds everything a Shell is built from. Zero values fall back to
// the process' own streams, environment and the built-in configuration.
type Options struct {
	Config *config.Configuration
	Reader LineReader

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Environ is passed to children and holds the search path variable.
	Environ []string
	// IsTerminal reports whether Stdout is a terminal, for color=auto.
	IsTerminal bool

	Events *logger.SessionLogger
	Logger *log.Logger
}

type Shell struct {
	Stdout io.Writer
	Stderr io.Writer

	reader   LineReader
	config   *config.Configuration
	events   *logger.SessionLogger
	logger   *log.Logger
	environ  []string
	fs       afero.Fs
	path     proc.SearchPath
	parser   *shell.Parser
	launcher *proc.Launcher
	jobs     *jobs.Table
	colors   ColorPrinter

	killSignal syscall.Signal
	lastStatus int
	exiting    bool
}

func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	killSignal, ok := proc.ParseSignal(cfg.KillSignal)
	if !ok {
		return nil, fmt.Errorf("invalid kill_signal %q", cfg.KillSignal)
	}
	if opts.Reader == nil {
		return nil, errors.New("no line reader")
	}

	stdin, stdout, stderr := opts.Stdin, opts.Stdout, opts.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	events := opts.Events
	if events == nil {
		events = logger.NewNopLogger().Sessionless()
	}
	diagnostics := opts.Logger
	if diagnostics == nil {
		diagnostics = log.New(ioutil.Discard, "", 0)
	}

	launcher := proc.NewLauncher(stdin, stdout, stderr, environ)
	return &Shell{
		Stdout: stdout,
		Stderr: stderr,

		reader:   opts.Reader,
		config:   cfg,
		events:   events,
		logger:   diagnostics,
		environ:  environ,
		fs:       afero.NewOsFs(),
		path:     proc.ParseSearchPath(lookupEnv(environ, cfg.PathEnv)),
		parser:   shell.NewParser(shell.WithMaxArgs(cfg.MaxArgs), shell.WithQuoting(cfg.Quoting)),
		launcher: launcher,
		jobs:     jobs.NewTable(cfg.MaxJobs, launcher),
		colors:   ColorPrinter{Mode: cfg.Color, IsTerminal: opts.IsTerminal},

		killSignal: killSignal,
	}, nil
}

// Getenv looks up a variable in the environment children are started with.
func (s *Shell) Getenv(key string) string {
	return lookupEnv(s.environ, key)
}

func lookupEnv(environ []string, key string) string {
	// Later entries win, like os/exec.
	for i := len(environ) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(environ[i], "="); ok && k == key {
			return v
		}
	}
	return ""
}

// Path gets the search path for commands.
func (s *Shell) Path() proc.SearchPath {
	return s.path
}

// Jobs returns the background job table.
func (s *Shell) Jobs() *jobs.Table {
	return s.jobs
}

// LastStatus returns the exit status of the most recent foreground command.
func (s *Shell) LastStatus() int {
	return s.lastStatus
}

func (s *Shell) Prompt() string {
	prompt := s.config.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	prompt = strings.ReplaceAll(prompt, `\u`, s.Getenv(EnvUser))
	host, _ := os.Hostname()
	prompt = strings.ReplaceAll(prompt, `\h`, host)

	pwd, _ := os.Getwd()
	if home := s.Getenv(EnvHome); home != "" && (pwd == home || strings.HasPrefix(pwd, home+"/")) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	prompt = strings.ReplaceAll(prompt, `\w`, pwd)

	if os.Getuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	return s.colors.Sprint(ColorBoldGreen, prompt)
}

// Run reads and executes lines until exit, end of input or ctx is done. It
// returns the interpreter's exit code.
func (s *Shell) Run(ctx context.Context) int {
	s.record(logger.SessionStart(os.Getpid(), s.path.String(), s.jobs.Cap()))

	code := s.loop(ctx)

	// Background children are left running.
	s.record(logger.SessionEnd(code, s.jobs.Len()))
	return code
}

func (s *Shell) loop(ctx context.Context) int {
	for !s.exiting {
		if err := ctx.Err(); err != nil {
			s.logger.Printf("stopping: %v", err)
			return 0
		}

		s.ReapJobs()

		s.reader.SetPrompt(s.Prompt())
		line, err := s.reader.Readline()

		switch {
		case errors.Is(err, io.EOF):
			return 0 // Input closed, quit.

		case errors.Is(err, readline.ErrInterrupt):
			continue // Discard the line.

		case err != nil:
			s.logger.Printf("Error readline: %v", err)
			return 1

		default:
			s.RunLine(ctx, line)
		}
	}
	return 0
}

// RunLine parses and executes a single line, returning its exit status.
func (s *Shell) RunLine(ctx context.Context, line string) int {
	cmd, err := s.parser.Parse(line)
	if err != nil {
		fmt.Fprintf(s.Stderr, "bshell: %v\n", err)
		return StatusSyntaxError
	}
	if cmd.Truncated {
		s.logger.Printf("%s: arguments past %d dropped", cmd.Name(), len(cmd.Args))
	}
	if cmd.Empty() {
		return 0
	}

	if builtin, ok := AllBuiltins[cmd.Name()]; ok {
		return builtin.Main(s, cmd.Args)
	}

	return s.launch(ctx, cmd)
}

func (s *Shell) launch(ctx context.Context, cmd shell.Command) int {
	name := cmd.Name()

	execPath, err := s.path.LookPath(s.fs, name)
	if err != nil {
		s.logger.Printf("lookup %q: %v", name, err)
		fmt.Fprintf(s.Stderr, "%s: command not found\n", name)
		s.record(logger.UnknownCommand(cmd.Args))
		return StatusNotFound
	}

	background := cmd.Background
	if background && s.jobs.Full() {
		fmt.Fprintln(s.Stderr, jobs.ErrFull)
		if s.config.FullTablePolicy == config.PolicyReject {
			return 1
		}
		background = false
	}

	res, err := s.launcher.Launch(ctx, execPath, cmd.Args, background)
	var launchErr *proc.LaunchError
	switch {
	case errors.As(err, &launchErr):
		fmt.Fprintln(s.Stderr, launchErr)
		s.record(logger.LaunchFailure(cmd.Args, launchErr.Kind.String(), launchErr.Err))
		return StatusCannotRun
	case err != nil:
		fmt.Fprintf(s.Stderr, "%s: %v\n", name, err)
		return 1
	}

	s.record(logger.RunCommand(cmd.Args, execPath, background, res.PID))

	if background {
		if _, err := s.jobs.Add(res.PID, name); err != nil {
			s.logger.Printf("tracking %d: %v", res.PID, err)
		}
		return 0
	}

	s.lastStatus = res.ExitStatus
	s.record(logger.CommandExit(name, res.PID, res.ExitStatus))
	return res.ExitStatus
}

// ReapJobs removes finished background jobs from the table.
func (s *Shell) ReapJobs() {
	for _, job := range s.jobs.ReapCompleted() {
		s.logger.Printf("[%d] %s exited with status %d", job.PID, job.Name, job.ExitStatus)
		s.record(logger.JobDone(job.Name, job.PID, job.ExitStatus))
	}
}

func (s *Shell) record(event logger.Event) {
	if err := s.events.Record(event); err != nil {
		s.logger.Printf("recording %s event: %v", event.Type, err)
	}
}

func (s *Shell) Close() error {
	return s.reader.Close()
}
