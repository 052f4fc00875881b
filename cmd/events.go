package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/josephlewis42/bshell/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the session event log.",
}

var reportCommand = &cobra.Command{
	Use:   "report [FILE]",
	Short: "Show a report of events.",
	Long:  `Summarize an event log, by default the one named in the configuration.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		var path string
		if len(args) > 0 {
			path = args[0]
		} else {
			configuration, err := loadConfig(cmd, newLogger(cmd))
			if err != nil {
				return err
			}
			path = configuration.EventLogPath()
		}
		if path == "" {
			return errors.New("no event log configured, pass a FILE or set event_log")
		}

		fd, err := os.Open(path)
		if err != nil {
			return err
		}
		defer fd.Close()

		var report logger.Report
		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(reportCommand)
}
