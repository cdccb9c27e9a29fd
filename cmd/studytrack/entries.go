package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/studytrack/internal/app"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
)

var (
	logDate        string
	logSubject     string
	logHours       float64
	logQuestions   int
	logPerformance int
	logMotivation  int
	logTopics      string
	logGoal        string
	logDoubts      string
	logReflection  string
	logNextFocus   string
	logRemarks     string
	logTestName    string
	logTestResult  string

	listSince   string
	listSubject string
	listLast    int

	statsTrendWindow int

	clearYes bool
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a study session",
		Args:  cobra.NoArgs,
		RunE:  runLogCmd,
	}
	cmd.Flags().StringVar(&logDate, "date", "", "session date YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&logSubject, "subject", "s", "", "subject name or prefix")
	cmd.Flags().Float64VarP(&logHours, "hours", "H", 0, "study duration in hours")
	cmd.Flags().IntVarP(&logQuestions, "questions", "q", 0, "questions attempted")
	cmd.Flags().IntVarP(&logPerformance, "performance", "p", 0, "self-assessed performance (1-10)")
	cmd.Flags().IntVarP(&logMotivation, "motivation", "m", 0, "motivation (1-10)")
	cmd.Flags().StringVar(&logTopics, "topics", "", "topics covered")
	cmd.Flags().StringVar(&logGoal, "goal", "", "goal or target for the session")
	cmd.Flags().StringVar(&logDoubts, "doubts", "", "open doubts")
	cmd.Flags().StringVar(&logReflection, "reflection", "", "self reflection")
	cmd.Flags().StringVar(&logNextFocus, "next-focus", "", "next day focus")
	cmd.Flags().StringVar(&logRemarks, "remarks", "", "remarks")
	cmd.Flags().StringVar(&logTestName, "test-name", "", "mock test name")
	cmd.Flags().StringVar(&logTestResult, "test-result", "", "mock test result")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func runLogCmd(cmd *cobra.Command, _ []string) error {
	subject, err := model.MatchSubject(logSubject)
	if err != nil {
		return err
	}
	date := logDate
	if date == "" {
		date = time.Now().Format(model.DateLayout)
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state := env.tracker.Load()
	state, err = env.tracker.AddEntries(state, model.StudyEntry{
		Date:        date,
		Subject:     subject,
		Duration:    model.Hours(logHours),
		Questions:   model.Count(logQuestions),
		Performance: model.Count(logPerformance),
		Motivation:  model.Count(logMotivation),
		Topics:      logTopics,
		Goal:        logGoal,
		Doubts:      logDoubts,
		Reflection:  logReflection,
		NextFocus:   logNextFocus,
		Remarks:     logRemarks,
		TestName:    logTestName,
		TestResult:  logTestResult,
	})
	if err != nil {
		return err
	}
	added := state.Entries[len(state.Entries)-1]
	if err := writeLines(cmd, fmt.Sprintf("Logged %s for %s on %s (%s).",
		model.FormatHours(float64(added.Duration)), added.Subject, added.Date, added.Result)); err != nil {
		return err
	}

	autoBackup(cmd, env, state)
	return nil
}

// autoBackup snapshots the collections when the settings ask for it. Failures
// are reported but never fail the command that triggered them.
func autoBackup(cmd *cobra.Command, env *env, state app.State) {
	if !app.BackupDue(state.Settings, time.Now()) {
		return
	}
	_, info, err := env.tracker.Backup(cmd.Context(), state)
	if err != nil {
		if !errors.Is(err, app.ErrNoArchive) {
			env.log.Warn("automatic backup failed", zap.Error(err))
			logErrf("Automatic backup failed: %v\n", err)
		}
		return
	}
	env.log.Debug("automatic backup", zap.String("id", info.ID))
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged study sessions",
		Args:  cobra.NoArgs,
		RunE:  runListCmd,
	}
	cmd.Flags().StringVar(&listSince, "since", "", "only entries on or after YYYY-MM-DD")
	cmd.Flags().StringVarP(&listSubject, "subject", "s", "", "only entries for this subject")
	cmd.Flags().IntVarP(&listLast, "last", "n", 0, "only the N most recent entries")
	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	if listLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	var since time.Time
	if listSince != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, listSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since date %q", listSince)
		}
		since = parsed
	}
	var subject model.Subject
	if listSubject != "" {
		parsed, err := model.MatchSubject(listSubject)
		if err != nil {
			return err
		}
		subject = parsed
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	entries := filterEntries(env.tracker.Load().Entries, since, subject)
	if listLast > 0 && len(entries) > listLast {
		entries = entries[len(entries)-listLast:]
	}
	if len(entries) == 0 {
		return writeLines(cmd, "No study entries found.")
	}
	return writeLines(cmd, entryTable(entries)...)
}

// filterEntries keeps entries matching since and subject, ordered by date.
// Entries with unparsable dates are dropped when since is set.
func filterEntries(entries []model.StudyEntry, since time.Time, subject model.Subject) []model.StudyEntry {
	out := make([]model.StudyEntry, 0, len(entries))
	for _, e := range entries {
		if subject != "" && e.Subject != subject {
			continue
		}
		if !since.IsZero() {
			d, err := e.ParsedDate()
			if err != nil || d.Before(since) {
				continue
			}
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func entryTable(entries []model.StudyEntry) []string {
	headers := []string{"Date", "Day", "Subject", "Hours", "Qs", "Perf", "Mot", "Result", "Topics"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Date,
			e.Day,
			string(e.Subject),
			strconv.FormatFloat(float64(e.Duration), 'f', -1, 64),
			strconv.Itoa(int(e.Questions)),
			strconv.Itoa(int(e.Performance)),
			strconv.Itoa(int(e.Motivation)),
			e.Result,
			e.Topics,
		})
	}
	return stats.FormatTable(headers, rows, map[int]bool{3: true, 4: true, 5: true, 6: true})
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the study report",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsTrendWindow, "trend-window", defaultTrendWindow, "moving average window for trends")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	applyIntConfig(cmd, "trend-window", &statsTrendWindow, env.cfg.Stats.TrendWindow)
	if statsTrendWindow <= 0 {
		return fmt.Errorf("--trend-window must be > 0")
	}

	state := env.tracker.Load()
	report := stats.BuildReport(state.Entries, time.Now())
	return stats.RenderReport(cmd.OutOrStdout(), report, statsTrendWindow)
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Export entries, targets, schedule and profile as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExportCmd,
	}
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	data, err := env.tracker.Export(env.tracker.Load())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		if _, err := cmd.OutOrStdout().Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return writeLines(cmd, fmt.Sprintf("Exported to %s", args[0]))
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace entries, targets, schedule and profile from an export",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state, err := env.tracker.Import(env.tracker.Load(), data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return writeLines(cmd, fmt.Sprintf("Imported %d entries.", len(state.Entries)))
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every logged study session",
		Args:  cobra.NoArgs,
		RunE:  runClearCmd,
	}
	cmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")
	return cmd
}

func runClearCmd(cmd *cobra.Command, _ []string) error {
	if !clearYes {
		return fmt.Errorf("refusing to clear the study log without --yes")
	}
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state := env.tracker.Load()
	removed := len(state.Entries)
	if _, err := env.tracker.ClearEntries(state); err != nil {
		return err
	}
	return writeLines(cmd, fmt.Sprintf("Removed %d entries.", removed))
}
