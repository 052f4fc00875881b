package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/bshell/core/config"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLine struct {
	line string
	err  error
}

// scriptedReader replays lines then reports EOF.
type scriptedReader struct {
	lines   []scriptedLine
	prompts []string
	closed  bool
}

func newScriptedReader(lines ...string) *scriptedReader {
	r := &scriptedReader{}
	for _, line := range lines {
		r.lines = append(r.lines, scriptedLine{line: line})
	}
	return r
}

func (r *scriptedReader) SetPrompt(prompt string) {
	r.prompts = append(r.prompts, prompt)
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	next := r.lines[0]
	r.lines = r.lines[1:]
	return next.line, next.err
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func testConfig() *config.Configuration {
	cfg := config.DefaultConfig()
	cfg.Color = ColorNever
	cfg.Prompt = "$ "
	return cfg
}

// newTestShell creates a shell with an empty search path unless dir is set,
// stdout and stderr both go to the returned buffer.
func newTestShell(t *testing.T, cfg *config.Configuration, dir string, reader LineReader) (*Shell, *bytes.Buffer) {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}
	if dir == "" {
		dir = t.TempDir()
	}
	if reader == nil {
		reader = newScriptedReader()
	}

	var out bytes.Buffer
	s, err := NewShell(Options{
		Config:  cfg,
		Reader:  reader,
		Stdout:  &out,
		Stderr:  &out,
		Environ: []string{"PATH=" + dir, "HOME=/nonexistent", "USER=tester"},
	})
	require.NoError(t, err)
	return s, &out
}

func TestShell_Golden(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	cases := []struct {
		name  string
		lines []string
	}{
		{"unknown_command", []string{"nosuchcommand-bshell", "exit", "nosuchcommand-unreached"}},
		{"kill_usage", []string{"kill", "k"}},
		{"kill_not_found", []string{"kill 12345", "k abc", "kill 99999999999999999999"}},
		{"kill_invalid_signal", []string{"kill -s NOPE 1", "kill -s 0 1"}},
		{"jobs_empty", []string{"jobs", "j"}},
		{"blank_lines", []string{"", "   ", "\t", "&", "  &  "}},
		{"help", []string{"help"}},
	}

	for _, tc := range cases {
		reader := newScriptedReader(tc.lines...)
		s, out := newTestShell(t, nil, "", reader)

		assert.Equal(t, 0, s.Run(context.Background()), tc.name)
		g.Assert(t, tc.name, out.Bytes())
	}
}

func TestShell_Run(t *testing.T) {
	t.Run("exit stops reading", func(t *testing.T) {
		reader := newScriptedReader("e", "kill")
		s, out := newTestShell(t, nil, "", reader)

		assert.Equal(t, 0, s.Run(context.Background()))
		assert.Empty(t, out.String())
		assert.Len(t, reader.lines, 1, "lines after exit are never read")
	})

	t.Run("eof", func(t *testing.T) {
		reader := newScriptedReader()
		s, _ := newTestShell(t, nil, "", reader)
		assert.Equal(t, 0, s.Run(context.Background()))
		assert.Equal(t, []string{"$ "}, reader.prompts)
	})

	t.Run("interrupt discards the line", func(t *testing.T) {
		reader := &scriptedReader{lines: []scriptedLine{
			{line: "kill", err: readline.ErrInterrupt},
			{line: "kill"},
		}}
		s, out := newTestShell(t, nil, "", reader)

		assert.Equal(t, 0, s.Run(context.Background()))
		assert.Equal(t, "USAGE: kill [-s SIGNAL] (process ID)\n", out.String())
	})

	t.Run("read error", func(t *testing.T) {
		reader := &scriptedReader{lines: []scriptedLine{
			{err: errors.New("terminal gone")},
			{line: "kill"},
		}}
		s, out := newTestShell(t, nil, "", reader)

		assert.Equal(t, 1, s.Run(context.Background()))
		assert.Empty(t, out.String())
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		reader := newScriptedReader("kill")
		s, out := newTestShell(t, nil, "", reader)

		assert.Equal(t, 0, s.Run(ctx))
		assert.Empty(t, out.String())
		assert.Len(t, reader.lines, 1)
	})

	t.Run("close", func(t *testing.T) {
		reader := newScriptedReader()
		s, _ := newTestShell(t, nil, "", reader)
		assert.NoError(t, s.Close())
		assert.True(t, reader.closed)
	})
}

func TestShell_RunLine(t *testing.T) {
	s, out := newTestShell(t, nil, "", nil)
	ctx := context.Background()

	assert.Equal(t, 0, s.RunLine(ctx, ""))
	assert.Equal(t, StatusNotFound, s.RunLine(ctx, "missing-program"))
	assert.Equal(t, StatusNotFound, s.RunLine(ctx, "/nonexistent/program &"))
	assert.Equal(t, 0, s.Jobs().Len())
	assert.Equal(t, 1, s.RunLine(ctx, "kill"))

	assert.Equal(t, "missing-program: command not found\n"+
		"/nonexistent/program: command not found\n"+
		"USAGE: kill [-s SIGNAL] (process ID)\n", out.String())
}

func TestShell_SyntaxError(t *testing.T) {
	cfg := testConfig()
	cfg.Quoting = true
	s, out := newTestShell(t, cfg, "", nil)

	assert.Equal(t, StatusSyntaxError, s.RunLine(context.Background(), "echo 'unterminated"))
	assert.True(t, strings.HasPrefix(out.String(), "bshell: syntax error"), out.String())
}

func TestShell_BuiltinHelpFlag(t *testing.T) {
	s, out := newTestShell(t, nil, "", nil)

	assert.Equal(t, 0, s.RunLine(context.Background(), "kill -h"))
	assert.Contains(t, out.String(), "usage: kill [-s SIGNAL] (process ID)")

	out.Reset()
	assert.Equal(t, 1, s.RunLine(context.Background(), "jobs --bogus"))
	assert.Contains(t, out.String(), "usage: jobs")
}

func TestNewShell(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.FullTablePolicy = "queue"
		_, err := NewShell(Options{Config: cfg, Reader: newScriptedReader()})
		assert.Error(t, err)
	})

	t.Run("missing reader", func(t *testing.T) {
		_, err := NewShell(Options{Config: testConfig()})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		s, err := NewShell(Options{Reader: newScriptedReader(), Environ: []string{"PATH=/a:/b::/c"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"/a", "/b", "/c"}, []string(s.Path()))
		assert.Equal(t, config.DefaultConfig().MaxJobs, s.Jobs().Cap())
		assert.Equal(t, os.Stdout, s.Stdout)
	})

	t.Run("custom path variable", func(t *testing.T) {
		cfg := testConfig()
		cfg.PathEnv = "BSHELL_PATH"
		s, err := NewShell(Options{
			Config:  cfg,
			Reader:  newScriptedReader(),
			Environ: []string{"PATH=/usr/bin", "BSHELL_PATH=/opt/bin", "BSHELL_PATH=/opt/override"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"/opt/override"}, []string(s.Path()))
	})

	t.Run("no search path", func(t *testing.T) {
		s, err := NewShell(Options{Config: testConfig(), Reader: newScriptedReader(), Environ: []string{}})
		require.NoError(t, err)
		assert.Empty(t, s.Path())
	})
}

func TestShell_Prompt(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	host, _ := os.Hostname()
	sigil := "$"
	if os.Getuid() == 0 {
		sigil = "#"
	}

	cases := map[string]struct {
		prompt   string
		home     string
		expected string
	}{
		"literal":      {"> ", "/nonexistent", "> "},
		"default":      {"", wd, "~" + sigil + " "},
		"all escapes":  {`\u@\h:\w\$ `, wd, "alice@" + host + ":~" + sigil + " "},
		"outside home": {`\w> `, "/nonexistent", wd + "> "},
		"home prefix":  {`\w> `, wd + "x", wd + "> "},
		"subdirectory": {`\w> `, filepath.Dir(wd), "~/" + filepath.Base(wd) + "> "},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := testConfig()
			cfg.Prompt = tc.prompt
			s, err := NewShell(Options{
				Config:  cfg,
				Reader:  newScriptedReader(),
				Environ: []string{"HOME=" + tc.home, "USER=alice"},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, s.Prompt())
		})
	}
}

func TestColorPrinter(t *testing.T) {
	cases := map[string]struct {
		printer ColorPrinter
		colored bool
	}{
		"always":          {ColorPrinter{Mode: ColorAlways}, true},
		"never":           {ColorPrinter{Mode: ColorNever, IsTerminal: true}, false},
		"auto terminal":   {ColorPrinter{Mode: ColorAuto, IsTerminal: true}, true},
		"auto redirected": {ColorPrinter{Mode: ColorAuto}, false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.colored, tc.printer.ShouldColor())

			out := tc.printer.Sprint(ColorBoldGreen, "$ ")
			if tc.colored {
				assert.Contains(t, out, "\x1b[")
				assert.Contains(t, out, "$ ")
			} else {
				assert.Equal(t, "$ ", out)
			}
		})
	}
}

func TestListBuiltins(t *testing.T) {
	assert.Equal(t, []string{"e", "exit", "help", "j", "jobs", "k", "kill"}, ListBuiltins())
}
