package stats

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/verte-zerg/studytrack/internal/model"
)

const (
	terminalWidthBackup = 80
	maxBarWidth         = 30
	minBarWidth         = 10
)

// Report contains precomputed data for stats rendering.
type Report struct {
	GeneratedAt   time.Time
	Overall       Overall
	Subjects      []SubjectStat
	Balance       map[model.Subject]float64
	Ideal         map[model.Subject]float64
	Weekly        WeeklySummary
	Efficiency    Efficiency
	PreferredDays map[time.Weekday]float64
	Trend         map[model.Subject][]TrendPoint
}

// BuildReport derives every figure the report views need from the full history.
func BuildReport(entries []model.StudyEntry, now time.Time) Report {
	overall := Summarize(entries)
	return Report{
		GeneratedAt:   now,
		Overall:       overall,
		Subjects:      SubjectStats(entries),
		Balance:       Balance(entries),
		Ideal:         IdealDistribution(overall.TotalHours),
		Weekly:        Weekly(entries, now),
		Efficiency:    ComputeEfficiency(entries),
		PreferredDays: PreferredDays(entries),
		Trend:         TrendBySubject(PerformanceTrend(entries)),
	}
}

// Empty reports whether the history had no usable entries.
func (r Report) Empty() bool {
	return r.Overall.TotalDays == 0
}

// RenderReport prints every section of the report.
func RenderReport(w io.Writer, r Report, trendWindow int) error {
	if r.Empty() {
		_, err := fmt.Fprintln(w, "No study entries found.")
		return err
	}
	barWidth := BarWidthFor(terminalWidth(w))
	sections := [][]string{
		SummaryLines(r.Overall),
		SubjectLines(r.Subjects, r.Balance, r.Ideal, barWidth),
		WeeklyLines(r.Weekly),
		EfficiencyLines(r.Efficiency, r.PreferredDays),
		TrendLines(r.Trend, trendWindow),
	}
	for _, lines := range sections {
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}
	return nil
}

// SummaryLines renders the overall figures.
func SummaryLines(o Overall) []string {
	return []string{
		"Summary",
		fmt.Sprintf("Total hours: %.1f", o.TotalHours),
		fmt.Sprintf("Days studied: %d", o.TotalDays),
		fmt.Sprintf("Questions attempted: %d", o.TotalQuestions),
		fmt.Sprintf("Avg performance: %.1f/10", o.AvgPerformance),
		fmt.Sprintf("Avg motivation: %.1f/10", o.AvgMotivation),
		fmt.Sprintf("Current streak: %d day%s", o.Streak, plural(o.Streak)),
	}
}

// SubjectLines renders per-subject totals with the actual and ideal split.
func SubjectLines(subjects []SubjectStat, balance, ideal map[model.Subject]float64, barWidth int) []string {
	headers := []string{"Subject", "Hours", "Ideal", "Share", "", "Questions", "Avg Perf", "Days"}
	rows := make([][]string, 0, len(model.Subjects))
	for _, subj := range model.Subjects {
		s := SubjectTotals(subjects, subj)
		share := "-"
		shareBar := Bar(0, 100, barWidth)
		if pct, ok := balance[subj]; ok {
			share = fmt.Sprintf("%.1f%%", pct)
			shareBar = Bar(pct, 100, barWidth)
		}
		avgPerf := "-"
		if s.Sessions > 0 {
			avgPerf = fmt.Sprintf("%.1f", s.AvgPerformance)
		}
		rows = append(rows, []string{
			string(subj),
			fmt.Sprintf("%.1f", s.Hours),
			fmt.Sprintf("%.1f", ideal[subj]),
			share,
			shareBar,
			fmt.Sprintf("%d", s.Questions),
			avgPerf,
			fmt.Sprintf("%d", s.StudyDays),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 5: true, 6: true, 7: true}
	return append([]string{"Subjects"}, FormatTable(headers, rows, rightAlign)...)
}

// WeeklyLines renders the current week.
func WeeklyLines(wk WeeklySummary) []string {
	title := fmt.Sprintf("This week (%s to %s)", wk.Start.Format(model.DateLayout), wk.End.Format(model.DateLayout))
	if wk.DaysStudied == 0 {
		return []string{title, "No entries this week."}
	}
	return []string{
		title,
		fmt.Sprintf("Hours: %.1f", wk.Hours),
		fmt.Sprintf("Questions: %d", wk.Questions),
		fmt.Sprintf("Days studied: %d", wk.DaysStudied),
		fmt.Sprintf("Subjects studied: %d", wk.SubjectsStudied),
		fmt.Sprintf("Avg performance: %.1f/10", wk.AvgPerformance),
		fmt.Sprintf("Avg motivation: %.1f/10", wk.AvgMotivation),
	}
}

// EfficiencyLines renders efficiency metrics and the weekday split.
func EfficiencyLines(eff Efficiency, preferred map[time.Weekday]float64) []string {
	lines := []string{
		"Efficiency",
		fmt.Sprintf("Questions per hour: %.1f", eff.QuestionsPerHour),
		fmt.Sprintf("Performance per hour: %.2f", eff.PerformancePerHour),
		fmt.Sprintf("Consistency: %.2f%%", eff.Consistency),
	}
	parts := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		day := time.Weekday(i % 7)
		parts = append(parts, fmt.Sprintf("%s %.1f", day.String()[:3], preferred[day]))
	}
	return append(lines, "Hours by weekday: "+strings.Join(parts, "  "))
}

// TrendLines renders one smoothed performance sparkline per subject.
func TrendLines(trend map[model.Subject][]TrendPoint, window int) []string {
	lines := []string{"Performance trend"}
	found := false
	for _, subj := range model.Subjects {
		points := trend[subj]
		if len(points) == 0 {
			continue
		}
		found = true
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Performance
		}
		smoothed := MovingAverage(values, window)
		lines = append(lines, fmt.Sprintf("%-9s |%s| last %.1f (%s)",
			subj,
			Sparkline(smoothed, 0, 10),
			smoothed[len(smoothed)-1],
			points[len(points)-1].Date.Format(model.DateLayout),
		))
	}
	if !found {
		lines = append(lines, "No performance data.")
	}
	return lines
}

// BarWidthFor picks a bar width that leaves room for the table columns.
func BarWidthFor(totalWidth int) int {
	width := totalWidth - 60
	if width > maxBarWidth {
		width = maxBarWidth
	}
	if width < minBarWidth {
		width = minBarWidth
	}
	return width
}

func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return terminalWidthBackup
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
