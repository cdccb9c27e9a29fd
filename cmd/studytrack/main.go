// Package main provides the CLI entrypoint for studytrack.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/studytrack/internal/statsui"
)

const (
	defaultTrendWindow   = 3
	defaultKeepSnapshots = 30
	defaultLogLevel      = "warn"
)

var (
	rootDataDir  string
	rootLogLevel string
	rootLogFile  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studytrack",
		Short:         "Study log, stats and weekly targets",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runDashboardCmd,
	}

	rootCmd.PersistentFlags().StringVar(&rootDataDir, "data-dir", "", "directory holding the study data (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootLogFile, "log-file", "", "rotated log file (default: XDG state dir)")
	rootCmd.Flags().IntVar(&statsTrendWindow, "trend-window", defaultTrendWindow, "moving average window for trends")

	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newTargetsCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newAccountCmd())
	rootCmd.AddCommand(newRemindCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	applyIntConfig(cmd, "trend-window", &statsTrendWindow, env.cfg.Stats.TrendWindow)

	state := env.tracker.Load()
	model := statsui.NewModel(env.tracker, state, statsTrendWindow, nil)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func writeLines(cmd *cobra.Command, lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
