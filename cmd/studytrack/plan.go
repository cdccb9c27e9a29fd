package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/schedule"
	"github.com/verte-zerg/studytrack/internal/settings"
	"github.com/verte-zerg/studytrack/internal/stats"
	"github.com/verte-zerg/studytrack/internal/target"
)

var (
	targetHours     float64
	targetQuestions int

	slotDisable bool

	profileName    string
	profileCollege string
	profileYear    int
	profileWeak    []string
	profileStrong  []string
)

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Show this week's progress against weekly targets",
		Args:  cobra.NoArgs,
		RunE:  runTargetsCmd,
	}
	setCmd := &cobra.Command{
		Use:   "set SUBJECT",
		Short: "Set the weekly target for a subject",
		Args:  cobra.ExactArgs(1),
		RunE:  runTargetsSetCmd,
	}
	setCmd.Flags().Float64VarP(&targetHours, "hours", "H", 10, "weekly hours")
	setCmd.Flags().IntVarP(&targetQuestions, "questions", "q", 100, "weekly questions")
	cmd.AddCommand(setCmd)
	return cmd
}

func runTargetsCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state := env.tracker.Load()
	now := time.Now()
	progress := target.Week(state.Entries, state.Targets, now)
	start, end := stats.WeekBounds(now)

	headers := []string{"Subject", "Hours", "Target", "Hours %", "Questions", "Target", "Questions %"}
	rows := make([][]string, 0, len(progress))
	for _, p := range progress {
		rows = append(rows, []string{
			string(p.Subject),
			fmt.Sprintf("%.1f", p.Hours),
			fmt.Sprintf("%.1f", p.Target.Hours),
			fmt.Sprintf("%.1f%%", p.HoursPct),
			strconv.Itoa(p.Questions),
			strconv.Itoa(p.Target.Questions),
			fmt.Sprintf("%.1f%%", p.QuestionsPct),
		})
	}
	lines := []string{fmt.Sprintf("Week %s to %s", start.Format(model.DateLayout), end.Format(model.DateLayout))}
	lines = append(lines, stats.FormatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true})...)
	for _, p := range target.Behind(progress, 50) {
		lines = append(lines, fmt.Sprintf("Behind on %s: %.1f%% of weekly hours", p.Subject, p.HoursPct))
	}
	return writeLines(cmd, lines...)
}

func runTargetsSetCmd(cmd *cobra.Command, args []string) error {
	subject, err := model.MatchSubject(args[0])
	if err != nil {
		return err
	}
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	goal := model.WeeklyTarget{Hours: targetHours, Questions: targetQuestions}
	if _, err := env.tracker.SetTarget(env.tracker.Load(), subject, goal); err != nil {
		return err
	}
	return writeLines(cmd, fmt.Sprintf("%s: %.1f hours, %d questions per week", subject, goal.Hours, goal.Questions))
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the weekly timetable",
		Args:  cobra.NoArgs,
		RunE:  runScheduleCmd,
	}
	setCmd := &cobra.Command{
		Use:   "set DAY SUBJECT START END",
		Short: "Set a subject's slot on a weekday (times HH:MM)",
		Args:  cobra.ExactArgs(4),
		RunE:  runScheduleSetCmd,
	}
	setCmd.Flags().BoolVar(&slotDisable, "disable", false, "store the slot disabled")
	cmd.AddCommand(setCmd)
	return cmd
}

func runScheduleCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state := env.tracker.Load()
	if err := schedule.BuildTimetable(state.Schedule).Render(cmd.OutOrStdout()); err != nil {
		return err
	}
	return writeOverlaps(cmd, schedule.Overlaps(state.Schedule))
}

func runScheduleSetCmd(cmd *cobra.Command, args []string) error {
	subject, err := model.MatchSubject(args[1])
	if err != nil {
		return err
	}
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	slot := model.Slot{Subject: subject, Start: args[2], End: args[3], Enabled: !slotDisable}
	_, overlaps, err := env.tracker.SetSlot(env.tracker.Load(), args[0], slot)
	if err != nil {
		return err
	}
	if err := writeLines(cmd, fmt.Sprintf("Saved %s %s-%s for %s.", subject, slot.Start, slot.End, args[0])); err != nil {
		return err
	}
	return writeOverlaps(cmd, overlaps)
}

func writeOverlaps(cmd *cobra.Command, overlaps []schedule.Overlap) error {
	if len(overlaps) == 0 {
		return nil
	}
	lines := []string{fmt.Sprintf("Warning: %d overlapping slot(s):", len(overlaps))}
	for _, o := range overlaps {
		lines = append(lines, "  "+o.String())
	}
	return writeLines(cmd, lines...)
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the profile",
		Args:  cobra.NoArgs,
		RunE:  runProfileCmd,
	}
	cmd.Flags().StringVar(&profileName, "name", "", "your name")
	cmd.Flags().StringVar(&profileCollege, "college", "", "target college")
	cmd.Flags().IntVar(&profileYear, "year", 0, "exam year")
	cmd.Flags().StringSliceVar(&profileWeak, "weak", nil, "weak subjects (comma separated)")
	cmd.Flags().StringSliceVar(&profileStrong, "strong", nil, "strong subjects (comma separated)")
	return cmd
}

func runProfileCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state := env.tracker.Load()
	p := state.Profile
	changed := false
	if cmd.Flags().Changed("name") {
		p.Name = profileName
		changed = true
	}
	if cmd.Flags().Changed("college") {
		p.TargetCollege = profileCollege
		changed = true
	}
	if cmd.Flags().Changed("year") {
		p.ExamYear = profileYear
		changed = true
	}
	if cmd.Flags().Changed("weak") {
		if p.WeakSubjects, err = matchSubjects(profileWeak); err != nil {
			return err
		}
		changed = true
	}
	if cmd.Flags().Changed("strong") {
		if p.StrongSubjects, err = matchSubjects(profileStrong); err != nil {
			return err
		}
		changed = true
	}
	if changed {
		if state, err = env.tracker.SaveProfile(state, p); err != nil {
			return err
		}
	}

	lines := []string{
		fmt.Sprintf("Name: %s", p.Name),
		fmt.Sprintf("Target college: %s", p.TargetCollege),
		fmt.Sprintf("Exam year: %d", p.ExamYear),
		fmt.Sprintf("Weak subjects: %s", joinSubjects(p.WeakSubjects)),
		fmt.Sprintf("Strong subjects: %s", joinSubjects(p.StrongSubjects)),
	}
	if days, err := state.Settings.DaysUntilExam(time.Now()); err == nil {
		lines = append(lines, fmt.Sprintf("Days until exam: %d", days))
	}
	return writeLines(cmd, lines...)
}

func matchSubjects(names []string) ([]model.Subject, error) {
	out := make([]model.Subject, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		subj, err := model.MatchSubject(name)
		if err != nil {
			return nil, err
		}
		out = append(out, subj)
	}
	return out, nil
}

func joinSubjects(subjects []model.Subject) string {
	if len(subjects) == 0 {
		return "-"
	}
	names := make([]string, len(subjects))
	for i, s := range subjects {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "List application settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Print one setting (e.g. notifications.reminder_time)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsGetCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsSetCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsResetCmd,
	})
	return cmd
}

func runSettingsCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	s := env.tracker.Load().Settings
	rows := [][]string{}
	for _, key := range s.Keys() {
		v, err := s.Get(key)
		if err != nil {
			return err
		}
		rows = append(rows, []string{key, formatSetting(v)})
	}
	return writeLines(cmd, stats.FormatTable([]string{"Key", "Value"}, rows, nil)...)
}

func runSettingsGetCmd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	v, err := env.tracker.Load().Settings.Get(args[0])
	if err != nil {
		return err
	}
	return writeLines(cmd, formatSetting(v))
}

func runSettingsSetCmd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state := env.tracker.Load()
	next, err := state.Settings.Set(args[0], args[1])
	if err != nil {
		return err
	}
	if _, err := env.tracker.SaveSettings(state, next); err != nil {
		return err
	}
	v, _ := next.Get(args[0])
	return writeLines(cmd, fmt.Sprintf("%s = %s", args[0], formatSetting(v)))
}

func runSettingsResetCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if _, err := env.tracker.SaveSettings(env.tracker.Load(), settings.Defaults()); err != nil {
		return err
	}
	return writeLines(cmd, "Settings restored to defaults.")
}

func formatSetting(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
