package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WeeklyTarget is a weekly goal for one subject.
type WeeklyTarget struct {
	Hours     float64 `json:"hours" validate:"gte=0"`
	Questions int     `json:"questions" validate:"gte=0"`
}

// WeeklyTargets maps each subject to its weekly goal.
type WeeklyTargets map[Subject]WeeklyTarget

// DefaultWeeklyTargets returns the targets used before the user sets any.
func DefaultWeeklyTargets() WeeklyTargets {
	targets := make(WeeklyTargets, len(Subjects))
	for _, subj := range Subjects {
		targets[subj] = WeeklyTarget{Hours: 10, Questions: 100}
	}
	return targets
}

// Slot is one scheduled block for a subject on a weekday. Times are "HH:MM".
type Slot struct {
	Subject Subject `json:"subject"`
	Start   string  `json:"start_time"`
	End     string  `json:"end_time"`
	Enabled bool    `json:"enabled"`
}

// ParseClock reads an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// Minutes returns the slot bounds as minutes since midnight.
func (s Slot) Minutes() (start, end int, err error) {
	sh, sm, err := ParseClock(s.Start)
	if err != nil {
		return 0, 0, err
	}
	eh, em, err := ParseClock(s.End)
	if err != nil {
		return 0, 0, err
	}
	return sh*60 + sm, eh*60 + em, nil
}

// Schedule maps a weekday name ("Monday") to its slots.
type Schedule map[string][]Slot

// Weekdays lists weekday names Monday first.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Profile holds the user's personal details.
type Profile struct {
	Name           string    `json:"name"`
	TargetCollege  string    `json:"target_college"`
	ExamYear       int       `json:"exam_year"`
	WeakSubjects   []Subject `json:"weak_subjects" validate:"dive,oneof=Physics Chemistry Botany Zoology"`
	StrongSubjects []Subject `json:"strong_subjects" validate:"dive,oneof=Physics Chemistry Botany Zoology"`
}

// DefaultProfile returns the profile used before the user fills one in.
func DefaultProfile() Profile {
	return Profile{
		TargetCollege:  "AIIMS",
		ExamYear:       2026,
		WeakSubjects:   []Subject{},
		StrongSubjects: []Subject{},
	}
}

// Account is a stored user credential record.
type Account struct {
	PasswordHash   string     `json:"password"`
	Email          string     `json:"email"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until"`
}

// Accounts maps a username to its account.
type Accounts map[string]Account

// Usernames returns the account names in sorted order.
func (a Accounts) Usernames() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bundle is the export/import document holding the four primary collections.
type Bundle struct {
	StudyData     []StudyEntry  `json:"study_data"`
	WeeklyTargets WeeklyTargets `json:"weekly_targets"`
	DailySchedule Schedule      `json:"daily_schedule"`
	Profile       Profile       `json:"profile"`
}

var bundleKeys = []string{"study_data", "weekly_targets", "daily_schedule", "profile"}

// DecodeBundle parses an exported bundle. The document is rejected unless all
// four collection keys are present.
func DecodeBundle(data []byte) (Bundle, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Bundle{}, fmt.Errorf("failed to decode bundle: %w", err)
	}
	for _, key := range bundleKeys {
		if _, ok := raw[key]; !ok {
			return Bundle{}, fmt.Errorf("bundle is missing %q", key)
		}
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return b, nil
}
