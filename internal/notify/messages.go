package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
)

var quotes = []string{
	"Success is not final, failure is not fatal: It is the courage to continue that counts.",
	"The future belongs to those who believe in the beauty of their dreams.",
	"Don't watch the clock; do what it does. Keep going.",
	"The secret of your success is determined by your daily agenda.",
	"The only way to do great work is to love what you do.",
}

// goalReminderThreshold is the progress below which GoalReminder fires.
const goalReminderThreshold = 50

// nextAt returns the next time at hour:minute strictly after now.
func nextAt(now time.Time, hour, minute int) time.Time {
	y, m, d := now.Date()
	at := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// DailyReminder schedules a logging reminder at the next occurrence of clock.
func DailyReminder(to, clock string, now time.Time) (Notification, error) {
	hour, minute, err := model.ParseClock(clock)
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		To:      to,
		Subject: "Daily Study Reminder",
		Body:    "Don't forget to log your study session today!",
		At:      nextAt(now, hour, minute),
	}, nil
}

// WeeklySummary schedules the summary for the coming Sunday at 20:00. On a
// Sunday that is today.
func WeeklySummary(to string, wk stats.WeeklySummary, now time.Time) Notification {
	daysUntilSunday := (7 - int(now.Weekday())) % 7
	y, m, d := now.AddDate(0, 0, daysUntilSunday).Date()
	return Notification{
		To:      to,
		Subject: "Weekly Study Summary",
		Body:    FormatWeeklySummary(wk),
		At:      time.Date(y, m, d, 20, 0, 0, 0, now.Location()),
	}
}

// FormatWeeklySummary renders the plain-text summary body.
func FormatWeeklySummary(wk stats.WeeklySummary) string {
	var b strings.Builder
	b.WriteString("Weekly Study Summary\n\n")
	fmt.Fprintf(&b, "Total Study Hours: %.1f\n", wk.Hours)
	fmt.Fprintf(&b, "Total Questions Attempted: %d\n", wk.Questions)
	fmt.Fprintf(&b, "Days Studied: %d\n", wk.DaysStudied)
	fmt.Fprintf(&b, "Average Performance: %.1f/10\n", wk.AvgPerformance)
	fmt.Fprintf(&b, "Average Motivation: %.1f/10\n", wk.AvgMotivation)
	if len(wk.Subjects) > 0 {
		b.WriteString("\nSubject-wise Summary:\n")
		for _, s := range wk.Subjects {
			fmt.Fprintf(&b, "\n%s:\n", s.Subject)
			fmt.Fprintf(&b, "  Hours: %.1f\n", s.Hours)
			fmt.Fprintf(&b, "  Questions: %d\n", s.Questions)
			fmt.Fprintf(&b, "  Performance: %.1f/10\n", s.AvgPerformance)
		}
	}
	return b.String()
}

// GoalReminder schedules a nudge one hour from now when progress toward a
// goal is below half. ok is false when no reminder is needed.
func GoalReminder(to, goal string, current, target float64, now time.Time) (n Notification, ok bool) {
	if target <= 0 {
		return Notification{}, false
	}
	progress := current / target * 100
	if progress >= goalReminderThreshold {
		return Notification{}, false
	}
	return Notification{
		To:      to,
		Subject: "Goal Progress Reminder",
		Body:    fmt.Sprintf("Your %s progress is at %.1f%%. Keep going!", goal, progress),
		At:      now.Add(time.Hour),
	}, true
}

// MotivationQuote schedules the quote of the day for 09:00.
func MotivationQuote(to string, now time.Time) Notification {
	// Monday is 0, matching the rotation users already see.
	idx := (int(now.Weekday()) + 6) % 7 % len(quotes)
	return Notification{
		To:      to,
		Subject: "Daily Motivation",
		Body:    "Today's Motivation:\n\n" + quotes[idx],
		At:      nextAt(now, 9, 0),
	}
}
