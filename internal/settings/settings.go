// Package settings holds user preferences persisted in app_settings.json.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

// ErrUnknownKey is returned for dotted keys that name no setting.
var ErrUnknownKey = errors.New("unknown setting")

// Settings is the full preference tree.
type Settings struct {
	Notifications  Notifications  `json:"notifications"`
	StudyGoals     StudyGoals     `json:"study_goals"`
	Preferences    Preferences    `json:"preferences"`
	DataManagement DataManagement `json:"data_management"`
	Exam           Exam           `json:"exam"`
}

type Notifications struct {
	Enabled       bool   `json:"enabled"`
	DailyReminder bool   `json:"daily_reminder"`
	WeeklySummary bool   `json:"weekly_summary"`
	ReminderTime  string `json:"reminder_time"`
}

type StudyGoals struct {
	DailyHours      float64 `json:"daily_hours"`
	WeeklyHours     float64 `json:"weekly_hours"`
	DailyQuestions  int     `json:"daily_questions"`
	WeeklyQuestions int     `json:"weekly_questions"`
}

type Preferences struct {
	Theme      string `json:"theme"`
	Language   string `json:"language"`
	Timezone   string `json:"timezone"`
	DateFormat string `json:"date_format"`
}

type DataManagement struct {
	AutoBackup      bool       `json:"auto_backup"`
	BackupFrequency string     `json:"backup_frequency"`
	LastBackup      *time.Time `json:"last_backup"`
}

// Exam records the target exam date as YYYY-MM-DD.
type Exam struct {
	Date string `json:"date"`
}

// Defaults returns the settings used before the user changes anything.
func Defaults() Settings {
	return Settings{
		Notifications: Notifications{
			Enabled:       true,
			DailyReminder: true,
			WeeklySummary: true,
			ReminderTime:  "20:00",
		},
		StudyGoals: StudyGoals{
			DailyHours:      6,
			WeeklyHours:     42,
			DailyQuestions:  50,
			WeeklyQuestions: 350,
		},
		Preferences: Preferences{
			Theme:      "light",
			Language:   "en",
			Timezone:   "UTC",
			DateFormat: model.DateLayout,
		},
		DataManagement: DataManagement{
			AutoBackup:      true,
			BackupFrequency: "daily",
		},
		Exam: Exam{Date: "2026-05-03"},
	}
}

// Decode merges a stored document onto the defaults. Keys absent from data
// keep their default values.
func Decode(data []byte) (Settings, error) {
	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}

// DaysUntilExam counts whole days from now to the exam date. It is negative
// once the exam has passed.
func (s Settings) DaysUntilExam(now time.Time) (int, error) {
	exam, err := time.ParseInLocation(model.DateLayout, s.Exam.Date, now.Location())
	if err != nil {
		return 0, fmt.Errorf("invalid exam date %q: %w", s.Exam.Date, err)
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return int(math.Round(exam.Sub(today).Hours() / 24)), nil
}

// Keys lists every dotted key in sorted order.
func (s Settings) Keys() []string {
	tree, err := s.tree()
	if err != nil {
		return nil
	}
	var keys []string
	for section, v := range tree {
		fields, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for field := range fields {
			keys = append(keys, section+"."+field)
		}
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value stored under a dotted key such as
// "notifications.reminder_time".
func (s Settings) Get(key string) (any, error) {
	tree, err := s.tree()
	if err != nil {
		return nil, err
	}
	section, field, err := lookup(tree, key)
	if err != nil {
		return nil, err
	}
	return section[field], nil
}

// Set parses value according to the current type of key and returns the
// updated settings. Booleans accept strconv.ParseBool input; "null" clears
// nullable fields.
func (s Settings) Set(key, value string) (Settings, error) {
	tree, err := s.tree()
	if err != nil {
		return s, err
	}
	section, field, err := lookup(tree, key)
	if err != nil {
		return s, err
	}
	parsed, err := parseValue(section[field], value)
	if err != nil {
		return s, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	section[field] = parsed

	data, err := json.Marshal(tree)
	if err != nil {
		return s, fmt.Errorf("failed to encode settings: %w", err)
	}
	var out Settings
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return s, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return out, nil
}

func (s Settings) tree() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return tree, nil
}

func lookup(tree map[string]any, key string) (map[string]any, string, error) {
	sectionName, field, ok := strings.Cut(key, ".")
	if !ok || field == "" || strings.Contains(field, ".") {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	section, ok := tree[sectionName].(map[string]any)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if _, ok := section[field]; !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return section, field, nil
}

func parseValue(current any, value string) (any, error) {
	switch current.(type) {
	case bool:
		return strconv.ParseBool(value)
	case float64:
		return strconv.ParseFloat(value, 64)
	case nil:
		if value == "null" || value == "" {
			return nil, nil
		}
		return value, nil
	default:
		return value, nil
	}
}
