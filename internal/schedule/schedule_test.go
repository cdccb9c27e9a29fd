package schedule

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/studytrack/internal/model"
)

func TestDefault(t *testing.T) {
	s := Default()
	if len(s) != 7 {
		t.Fatalf("expected 7 days, got %d", len(s))
	}
	mon := s["Monday"]
	if len(mon) != 4 || !mon[0].Enabled || mon[0].Start != "14:00" || mon[2].Start != "16:00" {
		t.Fatalf("unexpected Monday slots: %+v", mon)
	}
	for _, slot := range s["Sunday"] {
		if slot.Enabled {
			t.Fatalf("expected weekend slots disabled: %+v", slot)
		}
	}
}

func TestSetSlot(t *testing.T) {
	base := Default()
	next, err := SetSlot(base, "monday", model.Slot{Subject: model.Physics, Start: "08:00", End: "10:30", Enabled: true})
	if err != nil {
		t.Fatalf("set slot: %v", err)
	}
	if next["Monday"][0].Start != "08:00" {
		t.Fatalf("expected replaced slot, got %+v", next["Monday"][0])
	}
	if base["Monday"][0].Start != "14:00" {
		t.Fatalf("expected input schedule to be untouched")
	}
	if len(next["Monday"]) != 4 {
		t.Fatalf("expected no extra slot, got %d", len(next["Monday"]))
	}

	if _, err := SetSlot(base, "Funday", model.Slot{Subject: model.Physics, Start: "08:00", End: "09:00"}); err == nil {
		t.Fatalf("expected unknown day error")
	}
	if _, err := SetSlot(base, "Monday", model.Slot{Subject: "Math", Start: "08:00", End: "09:00"}); err == nil {
		t.Fatalf("expected unknown subject error")
	}
	if _, err := SetSlot(base, "Monday", model.Slot{Subject: model.Physics, Start: "10:00", End: "09:00"}); err == nil {
		t.Fatalf("expected reversed slot error")
	}

	empty, err := SetSlot(model.Schedule{}, "Tuesday", model.Slot{Subject: model.Botany, Start: "07:00", End: "08:00"})
	if err != nil || len(empty["Tuesday"]) != 1 {
		t.Fatalf("expected appended slot, got %+v (%v)", empty, err)
	}
}

func TestOverlaps(t *testing.T) {
	overlaps := Overlaps(Default())
	// Physics/Chemistry and Botany/Zoology share a block on each weekday.
	if len(overlaps) != 10 {
		t.Fatalf("expected 10 overlaps, got %d", len(overlaps))
	}
	if overlaps[0].Day != "Monday" || overlaps[0].First.Subject != model.Physics || overlaps[0].Other.Subject != model.Chemistry {
		t.Fatalf("unexpected first overlap: %v", overlaps[0])
	}

	touching := model.Schedule{"Monday": {
		{Subject: model.Physics, Start: "14:00", End: "16:00", Enabled: true},
		{Subject: model.Botany, Start: "16:00", End: "18:00", Enabled: true},
	}}
	if got := Overlaps(touching); len(got) != 0 {
		t.Fatalf("expected back-to-back slots not to overlap, got %v", got)
	}
}

func TestTimetable(t *testing.T) {
	s := model.Schedule{"Monday": {
		{Subject: model.Physics, Start: "08:30", End: "10:00", Enabled: true},
		{Subject: model.Botany, Start: "09:00", End: "09:45", Enabled: true},
		{Subject: model.Zoology, Start: "12:00", End: "13:00", Enabled: false},
	}}
	tt := BuildTimetable(s)
	if len(tt.Hours) != 15 {
		t.Fatalf("expected 15 hours, got %d", len(tt.Hours))
	}
	mon := tt.Cells["Monday"]
	if len(mon[0]) != 1 || mon[0][0] != model.Physics {
		t.Fatalf("unexpected 08:00 cell: %v", mon[0])
	}
	if len(mon[1]) != 2 {
		t.Fatalf("expected two subjects at 09:00, got %v", mon[1])
	}
	if len(mon[2]) != 0 || len(mon[4]) != 0 {
		t.Fatalf("expected empty 10:00 and disabled 12:00 cells, got %v %v", mon[2], mon[4])
	}

	var buf bytes.Buffer
	if err := tt.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected header and 7 days, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "Mon  Phy   !2    .") {
		t.Fatalf("unexpected Monday row %q", lines[1])
	}
}
