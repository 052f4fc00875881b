package cmd

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/bshell/core"
	"github.com/josephlewis42/bshell/core/config"
	"github.com/josephlewis42/bshell/core/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	verbose  bool
	exitCode int

	maxJobs         int
	maxArgs         int
	quoting         bool
	colorMode       string
	fullTablePolicy string
	eventLog        string
)

func newLogger(cmd *cobra.Command) *log.Logger {
	if !verbose {
		return log.New(ioutil.Discard, "", 0)
	}
	return log.New(cmd.ErrOrStderr(), "[bshell] ", 0)
}

// loadConfig reads the configuration and applies flags set on the command
// line over it.
func loadConfig(cmd *cobra.Command, logger *log.Logger) (*config.Configuration, error) {
	configuration, err := config.LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("max-jobs") {
		configuration.MaxJobs = maxJobs
	}
	if flags.Changed("max-args") {
		configuration.MaxArgs = maxArgs
	}
	if flags.Changed("quoting") {
		configuration.Quoting = quoting
	}
	if flags.Changed("color") {
		configuration.Color = colorMode
	}
	if flags.Changed("full-table-policy") {
		configuration.FullTablePolicy = fullTablePolicy
	}
	if flags.Changed("event-log") {
		configuration.EventLog = eventLog
	}

	return configuration, configuration.Validate()
}

func openEventLog(configuration *config.Configuration, diagnostics *log.Logger) *logger.SessionLogger {
	path := configuration.EventLogPath()
	if path == "" {
		return logger.NewNopLogger().Sessionless()
	}

	session := logger.NewLockedFileRecorder(path).NewSession()
	diagnostics.Printf("recording session %s to %s", session.SessionID(), path)
	return session
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bshell",
	Short: "A minimal interactive shell with background jobs.",
	Long: `bshell reads one command per line, looks it up on the search path and runs it.
A line ending in & runs in the background, jobs lists those processes and kill
signals them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		diagnostics := newLogger(cmd)
		configuration, err := loadConfig(cmd, diagnostics)
		if err != nil {
			return err
		}

		stdinIsTerminal := readline.IsTerminal(int(os.Stdin.Fd()))
		reader, err := core.NewTerminalReader(os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr(), stdinIsTerminal)
		if err != nil {
			return err
		}

		shell, err := core.NewShell(core.Options{
			Config:     configuration,
			Reader:     reader,
			Stdin:      os.Stdin,
			Stdout:     os.Stdout,
			Stderr:     os.Stderr,
			IsTerminal: readline.IsTerminal(int(os.Stdout.Fd())),
			Events:     openEventLog(configuration, diagnostics),
			Logger:     diagnostics,
		})
		if err != nil {
			reader.Close()
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		// A pending Readline only returns once the reader is closed.
		var closeOnce sync.Once
		closeShell := func() {
			closeOnce.Do(func() {
				if err := shell.Close(); err != nil {
					diagnostics.Printf("closing reader: %v", err)
				}
			})
		}
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				closeShell()
			case <-done:
			}
		}()

		exitCode = shell.Run(ctx)
		close(done)
		closeShell()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
	os.Exit(exitCode)
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "bshell")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigDir(), "config path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")

	flags := rootCmd.Flags()
	flags.IntVar(&maxJobs, "max-jobs", 0, "maximum number of background jobs, 0 for no limit")
	flags.IntVar(&maxArgs, "max-args", 0, "maximum number of arguments per command, 0 for no limit")
	flags.BoolVar(&quoting, "quoting", false, "honor quotes and backslash escapes")
	flags.StringVar(&colorMode, "color", core.ColorAuto, "colorize the prompt (always|auto|never)")
	flags.StringVar(&fullTablePolicy, "full-table-policy", config.PolicyForeground, "what to do with background requests when the job table is full (foreground|reject)")
	flags.StringVar(&eventLog, "event-log", "", "append session events to this file")
}
