// Package model defines shared data structures.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the on-disk format of entry dates.
const DateLayout = "2006-01-02"

// Subject is one of the fixed study subjects.
type Subject string

// Study subjects.
const (
	Physics   Subject = "Physics"
	Chemistry Subject = "Chemistry"
	Botany    Subject = "Botany"
	Zoology   Subject = "Zoology"
)

// Subjects lists the closed subject set in display order.
var Subjects = []Subject{Physics, Chemistry, Botany, Zoology}

// ParseSubject returns the subject named s. Matching is exact.
func ParseSubject(s string) (Subject, error) {
	for _, subj := range Subjects {
		if string(subj) == s {
			return subj, nil
		}
	}
	return "", fmt.Errorf("unknown subject %q", s)
}

// MatchSubject accepts a subject name or a unique case-insensitive prefix.
func MatchSubject(input string) (Subject, error) {
	in := strings.ToLower(strings.TrimSpace(input))
	var match Subject
	for _, subj := range Subjects {
		name := strings.ToLower(string(subj))
		if in == name {
			return subj, nil
		}
		if in != "" && strings.HasPrefix(name, in) {
			if match != "" {
				return "", fmt.Errorf("ambiguous subject %q", input)
			}
			match = subj
		}
	}
	if match == "" {
		return "", fmt.Errorf("unknown subject %q", input)
	}
	return match, nil
}

// Valid reports whether s is part of the closed subject set.
func (s Subject) Valid() bool {
	_, err := ParseSubject(string(s))
	return err == nil
}

// Index returns the display position of s, or len(Subjects) when unknown.
func (s Subject) Index() int {
	for i, subj := range Subjects {
		if subj == s {
			return i
		}
	}
	return len(Subjects)
}

// Result labels for a logged session.
const (
	ResultGood = "GOOD"
	ResultBad  = "BAD"
)

// goodPerformance is the lowest self-assessment that counts as GOOD.
const goodPerformance = 7

// StudyEntry is one logged session for one subject on one date.
// Ratings of zero mean the field was left unset.
type StudyEntry struct {
	Date        string  `json:"Date" validate:"required,datetime=2006-01-02"`
	Day         string  `json:"Day,omitempty"`
	Subject     Subject `json:"Subject" validate:"oneof=Physics Chemistry Botany Zoology"`
	Topics      string  `json:"Topics Covered"`
	Goal        string  `json:"Goal/Target"`
	Duration    Hours   `json:"Study Duration" validate:"gte=0,lte=24"`
	Questions   Count   `json:"Questions Attempted" validate:"gte=0"`
	Doubts      string  `json:"Doubts"`
	Motivation  Count   `json:"Motivation" validate:"omitempty,min=1,max=10"`
	Reflection  string  `json:"Self Reflection"`
	NextFocus   string  `json:"Next Day Focus"`
	Performance Count   `json:"Performance" validate:"omitempty,min=1,max=10"`
	Result      string  `json:"Result"`
	TestName    string  `json:"Test Name"`
	TestResult  string  `json:"Test Result"`
	Remarks     string  `json:"Remarks"`
}

// ParsedDate parses the entry date.
func (e StudyEntry) ParsedDate() (time.Time, error) {
	return time.ParseInLocation(DateLayout, e.Date, time.Local)
}

// Finalize fills the derived fields: weekday name and result label.
func (e StudyEntry) Finalize() StudyEntry {
	if d, err := e.ParsedDate(); err == nil {
		e.Day = d.Weekday().String()
	}
	if int(e.Performance) >= goodPerformance {
		e.Result = ResultGood
	} else {
		e.Result = ResultBad
	}
	return e
}

// Hours is a study duration serialized as "<number> hr".
type Hours float64

// MarshalJSON implements json.Marshaler.
func (h Hours) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatHours(float64(h)))
}

// UnmarshalJSON accepts "<number> hr", an empty string, or a bare number.
func (h *Hours) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*h = 0
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*h = Hours(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*h = 0
		return nil
	}
	f, err := ParseHours(s)
	if err != nil {
		return err
	}
	*h = Hours(f)
	return nil
}

// FormatHours renders a duration the way entries store it.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + " hr"
}

// ParseHours reads the leading number of a "<number> hr" string.
func ParseHours(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty duration")
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return f, nil
}

// Count is an integer field that older data files stored as a string.
type Count int

// UnmarshalJSON accepts a number, a numeric string, or an empty string.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", s, err)
		}
		*c = Count(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = Count(f)
	return nil
}
