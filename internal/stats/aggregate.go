// Package stats contains statistics calculations and reporting.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

// IdealWeights is the comparison split of total hours across subjects.
var IdealWeights = map[model.Subject]float64{
	model.Physics:   0.3,
	model.Chemistry: 0.3,
	model.Botany:    0.2,
	model.Zoology:   0.2,
}

type record struct {
	day   time.Time
	entry model.StudyEntry
}

// records pairs entries with their parsed day, dropping undated ones.
func records(entries []model.StudyEntry) []record {
	out := make([]record, 0, len(entries))
	for _, e := range entries {
		d, err := time.Parse(model.DateLayout, e.Date)
		if err != nil {
			continue
		}
		out = append(out, record{day: d, entry: e})
	}
	return out
}

func uniqueDays(recs []record) []time.Time {
	seen := make(map[time.Time]struct{}, len(recs))
	days := make([]time.Time, 0, len(recs))
	for _, r := range recs {
		if _, ok := seen[r.day]; ok {
			continue
		}
		seen[r.day] = struct{}{}
		days = append(days, r.day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// Streak counts consecutive studied days ending at the most recent one.
func Streak(entries []model.StudyEntry) int {
	days := uniqueDays(records(entries))
	if len(days) == 0 {
		return 0
	}
	streak := 1
	for i := len(days) - 1; i > 0; i-- {
		if daysBetween(days[i-1], days[i]) != 1 {
			break
		}
		streak++
	}
	return streak
}

// Consistency is the percentage of days in the observed range with at least
// one entry, rounded to 2 decimals.
func Consistency(entries []model.StudyEntry) float64 {
	days := uniqueDays(records(entries))
	if len(days) == 0 {
		return 0
	}
	span := daysBetween(days[0], days[len(days)-1]) + 1
	if span <= 0 {
		return 0
	}
	return round(float64(len(days))/float64(span)*100, 2)
}

// SubjectStat aggregates the entries of one subject.
type SubjectStat struct {
	Subject        model.Subject
	Sessions       int
	Hours          float64
	Questions      int
	AvgPerformance float64
	AvgMotivation  float64
	StudyDays      int
}

// SubjectStats groups entries by subject in display order. Subjects without
// entries are omitted.
func SubjectStats(entries []model.StudyEntry) []SubjectStat {
	return subjectStats(records(entries))
}

func subjectStats(recs []record) []SubjectStat {
	type acc struct {
		stat        SubjectStat
		performance float64
		motivation  float64
		days        map[time.Time]struct{}
	}
	bySubject := map[model.Subject]*acc{}
	for _, r := range recs {
		a, ok := bySubject[r.entry.Subject]
		if !ok {
			a = &acc{stat: SubjectStat{Subject: r.entry.Subject}, days: map[time.Time]struct{}{}}
			bySubject[r.entry.Subject] = a
		}
		a.stat.Sessions++
		a.stat.Hours += float64(r.entry.Duration)
		a.stat.Questions += int(r.entry.Questions)
		a.performance += float64(r.entry.Performance)
		a.motivation += float64(r.entry.Motivation)
		a.days[r.day] = struct{}{}
	}
	out := make([]SubjectStat, 0, len(bySubject))
	for _, a := range bySubject {
		n := float64(a.stat.Sessions)
		a.stat.AvgPerformance = a.performance / n
		a.stat.AvgMotivation = a.motivation / n
		a.stat.StudyDays = len(a.days)
		out = append(out, a.stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject.Index() == out[j].Subject.Index() {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Subject.Index() < out[j].Subject.Index()
	})
	return out
}

// Balance returns each subject's share of total hours in percent, rounded to
// one decimal. It returns nil when no time has been logged.
func Balance(entries []model.StudyEntry) map[model.Subject]float64 {
	stats := SubjectStats(entries)
	var total float64
	for _, s := range stats {
		total += s.Hours
	}
	if total <= 0 {
		return nil
	}
	out := make(map[model.Subject]float64, len(stats))
	for _, s := range stats {
		out[s.Subject] = round(s.Hours/total*100, 1)
	}
	return out
}

// IdealDistribution splits totalHours using IdealWeights.
func IdealDistribution(totalHours float64) map[model.Subject]float64 {
	out := make(map[model.Subject]float64, len(IdealWeights))
	for subj, w := range IdealWeights {
		out[subj] = totalHours * w
	}
	return out
}

// TrendPoint is the mean self-assessed performance for a subject on a day.
type TrendPoint struct {
	Date        time.Time
	Subject     model.Subject
	Performance float64
}

// PerformanceTrend averages performance per (date, subject), ascending by date.
func PerformanceTrend(entries []model.StudyEntry) []TrendPoint {
	type key struct {
		day     time.Time
		subject model.Subject
	}
	sums := map[key]float64{}
	counts := map[key]int{}
	for _, r := range records(entries) {
		k := key{day: r.day, subject: r.entry.Subject}
		sums[k] += float64(r.entry.Performance)
		counts[k]++
	}
	out := make([]TrendPoint, 0, len(sums))
	for k, sum := range sums {
		out = append(out, TrendPoint{Date: k.day, Subject: k.subject, Performance: sum / float64(counts[k])})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Subject.Index() < out[j].Subject.Index()
	})
	return out
}

// TrendBySubject splits trend points into one ordered series per subject.
func TrendBySubject(points []TrendPoint) map[model.Subject][]TrendPoint {
	out := map[model.Subject][]TrendPoint{}
	for _, p := range points {
		out[p.Subject] = append(out[p.Subject], p)
	}
	return out
}

// DistributionPoint is the hours logged for a subject on a day.
type DistributionPoint struct {
	Date    time.Time
	Subject model.Subject
	Hours   float64
}

// TimeDistribution sums hours per (date, subject), ascending by date.
func TimeDistribution(entries []model.StudyEntry) []DistributionPoint {
	type key struct {
		day     time.Time
		subject model.Subject
	}
	sums := map[key]float64{}
	for _, r := range records(entries) {
		sums[key{day: r.day, subject: r.entry.Subject}] += float64(r.entry.Duration)
	}
	out := make([]DistributionPoint, 0, len(sums))
	for k, h := range sums {
		out = append(out, DistributionPoint{Date: k.day, Subject: k.subject, Hours: h})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Subject.Index() < out[j].Subject.Index()
	})
	return out
}

// PreferredDays sums hours per weekday.
func PreferredDays(entries []model.StudyEntry) map[time.Weekday]float64 {
	out := map[time.Weekday]float64{}
	for _, r := range records(entries) {
		out[r.day.Weekday()] += float64(r.entry.Duration)
	}
	return out
}

// Overall summarizes the whole history.
type Overall struct {
	TotalHours     float64
	TotalDays      int
	TotalQuestions int
	AvgMotivation  float64
	AvgPerformance float64
	Streak         int
}

// Summarize computes the overall figures. Empty input yields zero values.
func Summarize(entries []model.StudyEntry) Overall {
	recs := records(entries)
	if len(recs) == 0 {
		return Overall{}
	}
	var out Overall
	var motivation, performance float64
	for _, r := range recs {
		out.TotalHours += float64(r.entry.Duration)
		out.TotalQuestions += int(r.entry.Questions)
		motivation += float64(r.entry.Motivation)
		performance += float64(r.entry.Performance)
	}
	n := float64(len(recs))
	out.TotalDays = len(uniqueDays(recs))
	out.AvgMotivation = motivation / n
	out.AvgPerformance = performance / n
	out.Streak = Streak(entries)
	return out
}

// Efficiency relates output to time spent.
type Efficiency struct {
	QuestionsPerHour   float64
	PerformancePerHour float64
	Consistency        float64
}

// ComputeEfficiency derives efficiency metrics from the whole history.
func ComputeEfficiency(entries []model.StudyEntry) Efficiency {
	recs := records(entries)
	if len(recs) == 0 {
		return Efficiency{}
	}
	var hours, performance float64
	var questions int
	for _, r := range recs {
		hours += float64(r.entry.Duration)
		performance += float64(r.entry.Performance)
		questions += int(r.entry.Questions)
	}
	var out Efficiency
	if hours > 0 {
		n := float64(len(recs))
		out.QuestionsPerHour = float64(questions) / hours
		out.PerformancePerHour = (performance / n) / (hours / n)
	}
	out.Consistency = Consistency(entries)
	return out
}

// WeeklySummary aggregates the entries of one Monday-start week.
type WeeklySummary struct {
	Start           time.Time
	End             time.Time
	Hours           float64
	Questions       int
	DaysStudied     int
	SubjectsStudied int
	AvgPerformance  float64
	AvgMotivation   float64
	Subjects        []SubjectStat
}

// WeekBounds returns the Monday and Sunday of the week containing now.
func WeekBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := (int(today.Weekday()) + 6) % 7
	start := today.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// Weekly summarizes the week containing now. A week without entries yields
// zero figures with the bounds filled in.
func Weekly(entries []model.StudyEntry, now time.Time) WeeklySummary {
	start, end := WeekBounds(now)
	out := WeeklySummary{Start: start, End: end}
	var week []record
	for _, r := range records(entries) {
		if r.day.Before(start) || r.day.After(end) {
			continue
		}
		week = append(week, r)
	}
	if len(week) == 0 {
		return out
	}
	var performance, motivation float64
	for _, r := range week {
		out.Hours += float64(r.entry.Duration)
		out.Questions += int(r.entry.Questions)
		performance += float64(r.entry.Performance)
		motivation += float64(r.entry.Motivation)
	}
	n := float64(len(week))
	out.AvgPerformance = performance / n
	out.AvgMotivation = motivation / n
	out.DaysStudied = len(uniqueDays(week))
	out.Subjects = subjectStats(week)
	out.SubjectsStudied = len(out.Subjects)
	return out
}

// SubjectTotals looks up one subject's figures in stats.
func SubjectTotals(stats []SubjectStat, subject model.Subject) SubjectStat {
	for _, s := range stats {
		if s.Subject == subject {
			return s
		}
	}
	return SubjectStat{Subject: subject}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
