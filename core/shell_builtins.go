package core

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/josephlewis42/bshell/core/jobs"
	"github.com/josephlewis42/bshell/core/logger"
	"github.com/josephlewis42/bshell/core/proc"
	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// ListBuiltins returns the names of all builtins, sorted.
func ListBuiltins() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (c *SimpleCommand) Flags() *getopt.Set {
	if c.flags == nil {
		c.flags = getopt.New()
	}

	return c.flags
}

// PrintHelp writes help for the command to the given writer.
func (c *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, c.Use)
	fmt.Fprintln(w, c.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	c.Flags().PrintOptions(w)
}

// Run parses args, if flag parsing was successful the callback is called
// with the remaining positional arguments.
func (c *SimpleCommand) Run(s *Shell, args []string, callback func(args []string) int) int {
	opts := c.Flags()
	showHelp := opts.BoolLong("help", 'h', "show this help and exit")

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %s\n\n", args[0], err)
		c.PrintHelp(s.Stderr)
		return 1
	}

	if *showHelp {
		c.PrintHelp(s.Stdout)
		return 0
	}

	return callback(opts.Args())
}

// Exit quits the shell, background jobs keep running.
func Exit(s *Shell, args []string) int {
	s.exiting = true
	return 0
}

// Jobs lists the live background jobs in launch order.
func Jobs(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "jobs",
		Short: "List the processes running in the background.",
	}

	return cmd.Run(s, args, func([]string) int {
		s.ReapJobs()

		fmt.Fprintln(s.Stdout, "Processes in the background:")
		for _, job := range s.jobs.List() {
			fmt.Fprintln(s.Stdout, job)
		}
		return 0
	})
}

// Kill signals background jobs by process ID.
func Kill(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "kill [-s SIGNAL] (process ID)",
		Short: "Send a signal to a background process.",
	}
	signalName := cmd.Flags().StringLong("signal", 's', s.config.KillSignal, "signal to send", "SIGNAL")

	return cmd.Run(s, args, func(ids []string) int {
		if len(ids) == 0 {
			fmt.Fprintln(s.Stderr, "USAGE: "+cmd.Use)
			return 1
		}

		sig := s.killSignal
		if *signalName != s.config.KillSignal {
			parsed, ok := proc.ParseSignal(*signalName)
			if !ok {
				fmt.Fprintf(s.Stderr, "kill: invalid signal %s\n", *signalName)
				return 1
			}
			sig = parsed
		}

		status := 0
		for _, id := range ids {
			pid, err := strconv.Atoi(id)
			if err == nil {
				err = s.jobs.Signal(pid, sig)
			}

			switch {
			case err == nil:
				s.record(logger.JobSignal(pid, *signalName))
			case errors.Is(err, jobs.ErrNotFound), errors.Is(err, strconv.ErrSyntax), errors.Is(err, strconv.ErrRange):
				fmt.Fprintf(s.Stderr, "Process with the id %s not found.\n", id)
				status = 1
			default:
				fmt.Fprintf(s.Stderr, "kill: %v\n", err)
				status = 1
			}
		}
		return status
	})
}

// Help lists the builtins.
func Help(s *Shell, args []string) int {
	w := s.Stdout
	fmt.Fprintln(w, "bshell, a minimal job control shell.")
	fmt.Fprintln(w, "These shell commands are defined internally.")
	fmt.Fprintln(w, "Anything else is looked up on the search path, end a line with & to run it in the background.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	for _, name := range ListBuiltins() {
		fmt.Fprintln(w, name)
	}

	return 0
}

func init() {
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["e"] = ShellBuiltinFunc(Exit)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["j"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["kill"] = ShellBuiltinFunc(Kill)
	AllBuiltins["k"] = ShellBuiltinFunc(Kill)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
}
