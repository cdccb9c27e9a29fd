// Package schedule manages the weekly study timetable.
package schedule

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/studytrack/internal/model"
)

// Timetable covers the hours FirstHour through LastHour.
const (
	FirstHour = 8
	LastHour  = 22
)

// Default returns the starter timetable: Physics and Chemistry 14:00-16:00,
// Botany and Zoology 16:00-18:00, enabled on weekdays only.
func Default() model.Schedule {
	s := make(model.Schedule, len(model.Weekdays))
	for _, day := range model.Weekdays {
		weekend := day == "Saturday" || day == "Sunday"
		slots := make([]model.Slot, 0, len(model.Subjects))
		for _, subj := range model.Subjects {
			slot := model.Slot{Subject: subj, Start: "16:00", End: "18:00", Enabled: !weekend}
			if subj == model.Physics || subj == model.Chemistry {
				slot.Start, slot.End = "14:00", "16:00"
			}
			slots = append(slots, slot)
		}
		s[day] = slots
	}
	return s
}

// ParseDay returns the canonical weekday name for day, ignoring case.
func ParseDay(day string) (string, error) {
	for _, d := range model.Weekdays {
		if strings.EqualFold(d, day) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", day)
}

// SetSlot returns a copy of s with the subject's slot on day replaced by slot.
func SetSlot(s model.Schedule, day string, slot model.Slot) (model.Schedule, error) {
	day, err := ParseDay(day)
	if err != nil {
		return s, err
	}
	if !slot.Subject.Valid() {
		return s, fmt.Errorf("unknown subject %q", slot.Subject)
	}
	start, end, err := slot.Minutes()
	if err != nil {
		return s, err
	}
	if end <= start {
		return s, fmt.Errorf("slot must end after it starts: %s-%s", slot.Start, slot.End)
	}

	out := make(model.Schedule, len(s)+1)
	for d, slots := range s {
		out[d] = append([]model.Slot(nil), slots...)
	}
	slots := out[day]
	for i := range slots {
		if slots[i].Subject == slot.Subject {
			slots[i] = slot
			return out, nil
		}
	}
	out[day] = append(slots, slot)
	return out, nil
}

// Overlap is a pair of enabled slots on the same day whose times intersect.
type Overlap struct {
	Day   string
	First model.Slot
	Other model.Slot
}

func (o Overlap) String() string {
	return fmt.Sprintf("%s: %s %s-%s overlaps %s %s-%s", o.Day,
		o.First.Subject, o.First.Start, o.First.End,
		o.Other.Subject, o.Other.Start, o.Other.End)
}

// Overlaps reports intersecting enabled slots. Slots with unparsable times
// are skipped. Nothing is resolved.
func Overlaps(s model.Schedule) []Overlap {
	var out []Overlap
	for _, day := range model.Weekdays {
		slots := s[day]
		for i := 0; i < len(slots); i++ {
			a := slots[i]
			as, ae, err := a.Minutes()
			if err != nil || !a.Enabled {
				continue
			}
			for j := i + 1; j < len(slots); j++ {
				b := slots[j]
				bs, be, err := b.Minutes()
				if err != nil || !b.Enabled {
					continue
				}
				if as < be && bs < ae {
					out = append(out, Overlap{Day: day, First: a, Other: b})
				}
			}
		}
	}
	return out
}

// Timetable is a weekday by hour grid of scheduled subjects.
type Timetable struct {
	Hours []int
	// Cells[day][hour] lists subjects scheduled during that hour, in slot order.
	Cells map[string][][]model.Subject
}

// BuildTimetable places every enabled slot into the hours it covers. An hour
// is covered when the slot starts before its end and ends after its start.
func BuildTimetable(s model.Schedule) Timetable {
	t := Timetable{Cells: make(map[string][][]model.Subject, len(model.Weekdays))}
	for h := FirstHour; h <= LastHour; h++ {
		t.Hours = append(t.Hours, h)
	}
	for _, day := range model.Weekdays {
		cells := make([][]model.Subject, len(t.Hours))
		for _, slot := range s[day] {
			if !slot.Enabled {
				continue
			}
			start, end, err := slot.Minutes()
			if err != nil {
				continue
			}
			for i, h := range t.Hours {
				if start < (h+1)*60 && end > h*60 {
					cells[i] = append(cells[i], slot.Subject)
				}
			}
		}
		t.Cells[day] = cells
	}
	return t
}

// Render writes the grid with one row per weekday.
func (t Timetable) Render(w io.Writer) error {
	const cellWidth = 5
	var b strings.Builder
	b.WriteString(runewidth.FillRight("", 4))
	for _, h := range t.Hours {
		b.WriteString(" " + runewidth.FillRight(fmt.Sprintf("%02d", h), cellWidth))
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
		return err
	}
	for _, day := range model.Weekdays {
		b.Reset()
		b.WriteString(runewidth.FillRight(day[:3], 4))
		for _, cell := range t.Cells[day] {
			b.WriteString(" " + runewidth.FillRight(cellLabel(cell), cellWidth))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

func cellLabel(subjects []model.Subject) string {
	switch len(subjects) {
	case 0:
		return "."
	case 1:
		return string(subjects[0])[:3]
	default:
		return "!" + fmt.Sprint(len(subjects))
	}
}
