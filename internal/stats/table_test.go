package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Subject", "Hours", "Share"}
	rows := [][]string{
		{"Physics", "12.5", "41.7%"},
		{"Zoology", "3.0", "10.0%"},
		{"Botany", "", ""},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := FormatTable(headers, rows, rightAlign)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0] != "Subject Hours Share" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Physics  12.5 41.7%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Zoology   3.0 10.0%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
	if lines[3] != "Botany" {
		t.Fatalf("unexpected trailing padding: %q", lines[3])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := FormatTable([]string{"A", "B"}, [][]string{{"日本", "x"}}, nil)
	if lines[0] != "A    B" {
		t.Fatalf("expected double-width cell to widen the column, got %q", lines[0])
	}
}
