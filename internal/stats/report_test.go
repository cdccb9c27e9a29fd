package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

func TestRenderReport(t *testing.T) {
	entries := []model.StudyEntry{
		entry("2025-02-17", model.Physics, 2, 20, 6, 8),
		entry("2025-02-18", model.Chemistry, 2, 10, 8, 6),
		entry("2025-02-19", model.Physics, 1, 5, 9, 7),
	}
	now := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	report := BuildReport(entries, now)
	if report.Empty() {
		t.Fatalf("expected non-empty report")
	}
	if report.Overall.Streak != 3 {
		t.Fatalf("expected streak 3, got %d", report.Overall.Streak)
	}

	var buf bytes.Buffer
	if err := RenderReport(&buf, report, 2); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Total hours: 5.0",
		"Current streak: 3 days",
		"This week (2025-02-17 to 2025-02-23)",
		"Questions per hour: 7.0",
		"Consistency: 100.00%",
		"Physics",
		"60.0%",
		"Performance trend",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, BuildReport(nil, time.Now()), 3); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No study entries found." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestBarWidthFor(t *testing.T) {
	if got := BarWidthFor(40); got != minBarWidth {
		t.Fatalf("expected min width, got %d", got)
	}
	if got := BarWidthFor(200); got != maxBarWidth {
		t.Fatalf("expected max width, got %d", got)
	}
	if got := BarWidthFor(80); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
}
