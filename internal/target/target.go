// Package target compares weekly actuals against the configured goals.
package target

import (
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
)

// Progress is the completion of one target, each value in [0,100].
type Progress struct {
	HoursPct     float64
	QuestionsPct float64
}

// Compute returns how far current hours and questions are toward target.
// A zero target yields 0%.
func Compute(hours float64, questions int, target model.WeeklyTarget) Progress {
	return Progress{
		HoursPct:     percent(hours, target.Hours),
		QuestionsPct: percent(float64(questions), float64(target.Questions)),
	}
}

func percent(current, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	pct := current / goal * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// SubjectProgress is one subject's weekly actuals next to its target.
type SubjectProgress struct {
	Subject   model.Subject
	Hours     float64
	Questions int
	Target    model.WeeklyTarget
	Progress
}

// Week reports progress for every subject over the week containing now.
// Subjects without a configured target use the defaults.
func Week(entries []model.StudyEntry, targets model.WeeklyTargets, now time.Time) []SubjectProgress {
	summary := stats.Weekly(entries, now)
	defaults := model.DefaultWeeklyTargets()
	out := make([]SubjectProgress, 0, len(model.Subjects))
	for _, subj := range model.Subjects {
		goal, ok := targets[subj]
		if !ok {
			goal = defaults[subj]
		}
		totals := stats.SubjectTotals(summary.Subjects, subj)
		out = append(out, SubjectProgress{
			Subject:   subj,
			Hours:     totals.Hours,
			Questions: totals.Questions,
			Target:    goal,
			Progress:  Compute(totals.Hours, totals.Questions, goal),
		})
	}
	return out
}

// Behind returns the subjects whose hours progress is below pct.
func Behind(progress []SubjectProgress, pct float64) []SubjectProgress {
	var out []SubjectProgress
	for _, p := range progress {
		if p.Target.Hours > 0 && p.HoursPct < pct {
			out = append(out, p)
		}
	}
	return out
}
