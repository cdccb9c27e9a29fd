package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/verte-zerg/studytrack/internal/app"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/notify"
	"github.com/verte-zerg/studytrack/internal/settings"
	"github.com/verte-zerg/studytrack/internal/store"
)

func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	return filepath.Join(root, "data", "studytrack")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLogListAndStats(t *testing.T) {
	dataDir := isolate(t)

	out, err := run(t, "log", "--date", "2025-02-19", "-s", "phy", "-H", "2.5", "-q", "30", "-p", "8", "-m", "7", "--topics", "Optics")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if !strings.Contains(out, "Logged 2.5 hr for Physics on 2025-02-19 (GOOD)") {
		t.Fatalf("unexpected log output: %q", out)
	}
	if _, err := run(t, "log", "--date", "2025-02-20", "-s", "Botany", "-H", "1", "-p", "4"); err != nil {
		t.Fatalf("log: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, store.StudyData)); err != nil {
		t.Fatalf("expected study log on disk: %v", err)
	}

	out, err = run(t, "list", "--subject", "bot")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Botany") || strings.Contains(out, "Optics") {
		t.Fatalf("unexpected filtered list: %q", out)
	}

	out, err = run(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Total hours: 3.5") {
		t.Fatalf("unexpected report: %q", out)
	}
}

func TestLogRejectsInvalidEntry(t *testing.T) {
	isolate(t)
	if _, err := run(t, "log", "--date", "2025-02-30", "-s", "Physics", "-H", "1"); err == nil {
		t.Fatalf("expected impossible date to be rejected")
	}
	if _, err := run(t, "log", "-s", "Math", "-H", "1"); err == nil {
		t.Fatalf("expected unknown subject to be rejected")
	}
	out, err := run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No study entries found.") {
		t.Fatalf("expected empty list, got %q", out)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	root := isolate(t)
	if _, err := run(t, "log", "--date", "2025-02-19", "-s", "Zoology", "-H", "3"); err != nil {
		t.Fatalf("log: %v", err)
	}
	path := filepath.Join(root, "..", "export.json")
	if _, err := run(t, "export", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := run(t, "clear"); err == nil {
		t.Fatalf("expected clear without --yes to fail")
	}
	if _, err := run(t, "clear", "--yes"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out, err := run(t, "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 1 entries.") {
		t.Fatalf("unexpected import output: %q", out)
	}
}

func TestScheduleSetReportsOverlap(t *testing.T) {
	isolate(t)
	out, err := run(t, "schedule", "set", "saturday", "phy", "10:00", "12:00")
	if err != nil {
		t.Fatalf("schedule set: %v", err)
	}
	if strings.Contains(out, "Warning") {
		t.Fatalf("expected no overlap on an empty day: %q", out)
	}
	out, err = run(t, "schedule", "set", "saturday", "chem", "11:00", "13:00")
	if err != nil {
		t.Fatalf("schedule set: %v", err)
	}
	if !strings.Contains(out, "Warning: 1 overlapping slot(s)") {
		t.Fatalf("expected overlap warning, got %q", out)
	}
	if _, err := run(t, "schedule", "set", "funday", "phy", "10:00", "12:00"); err == nil {
		t.Fatalf("expected unknown weekday to be rejected")
	}
}

func TestSettingsCommands(t *testing.T) {
	isolate(t)
	if _, err := run(t, "settings", "set", "notifications.reminder_time", "07:30"); err != nil {
		t.Fatalf("settings set: %v", err)
	}
	out, err := run(t, "settings", "get", "notifications.reminder_time")
	if err != nil {
		t.Fatalf("settings get: %v", err)
	}
	if strings.TrimSpace(out) != "07:30" {
		t.Fatalf("expected 07:30, got %q", out)
	}
	if _, err := run(t, "settings", "set", "nope.key", "1"); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
	if _, err := run(t, "settings", "reset"); err != nil {
		t.Fatalf("settings reset: %v", err)
	}
	out, err = run(t, "settings", "get", "notifications.reminder_time")
	if err != nil {
		t.Fatalf("settings get: %v", err)
	}
	if strings.TrimSpace(out) != "20:00" {
		t.Fatalf("expected default after reset, got %q", out)
	}
}

func TestTargetsAndProfile(t *testing.T) {
	isolate(t)
	if _, err := run(t, "targets", "set", "chem", "--hours", "12", "--questions", "150"); err != nil {
		t.Fatalf("targets set: %v", err)
	}
	out, err := run(t, "targets")
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	if !strings.Contains(out, "12.0") || !strings.Contains(out, "150") {
		t.Fatalf("expected updated target in output: %q", out)
	}
	out, err = run(t, "profile", "--name", "Asha", "--weak", "phy,chem")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !strings.Contains(out, "Weak subjects: Physics, Chemistry") {
		t.Fatalf("unexpected profile output: %q", out)
	}
	if _, err := run(t, "profile", "--strong", "math"); err == nil {
		t.Fatalf("expected unknown subject to be rejected")
	}
}

func TestBackupListRestore(t *testing.T) {
	isolate(t)
	if _, err := run(t, "settings", "set", "data_management.auto_backup", "false"); err != nil {
		t.Fatalf("settings set: %v", err)
	}
	if _, err := run(t, "log", "--date", "2025-02-19", "-s", "Physics", "-H", "2"); err != nil {
		t.Fatalf("log: %v", err)
	}
	out, err := run(t, "backup")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[0] != "Stored" {
		t.Fatalf("unexpected backup output: %q", out)
	}
	id := fields[2]

	if _, err := run(t, "clear", "--yes"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out, err = run(t, "backup", "list")
	if err != nil {
		t.Fatalf("backup list: %v", err)
	}
	if !strings.Contains(out, id) {
		t.Fatalf("expected %s in list: %q", id, out)
	}
	out, err = run(t, "backup", "restore", id)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !strings.Contains(out, "(1 entries)") {
		t.Fatalf("unexpected restore output: %q", out)
	}
	if _, err := run(t, "backup", "restore", "missing"); err == nil {
		t.Fatalf("expected unknown snapshot to fail")
	}
}

func TestFilterEntries(t *testing.T) {
	entries := []model.StudyEntry{
		{Date: "2025-02-20", Subject: model.Physics},
		{Date: "2025-02-18", Subject: model.Physics},
		{Date: "bad", Subject: model.Physics},
		{Date: "2025-02-19", Subject: model.Botany},
	}
	since := time.Date(2025, 2, 19, 0, 0, 0, 0, time.Local)
	got := filterEntries(entries, since, model.Physics)
	if len(got) != 1 || got[0].Date != "2025-02-20" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	all := filterEntries(entries, time.Time{}, "")
	if len(all) != 4 || all[0].Date != "2025-02-18" {
		t.Fatalf("expected all entries sorted by date, got %+v", all)
	}
}

func TestPlanReminders(t *testing.T) {
	now := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	s := notify.NewScheduler(notify.LogSender(func(notify.Notification) {}), notify.Options{Interval: time.Hour}, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	}()

	state := app.State{Settings: settings.Defaults()}
	if err := planReminders(ctx, s, state, "me@example.com", now); err != nil {
		t.Fatalf("plan: %v", err)
	}
	// Replanning must not duplicate anything except the relative goal reminders.
	if err := planReminders(ctx, s, state, "me@example.com", now); err != nil {
		t.Fatalf("replan: %v", err)
	}
	pending, err := s.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	// daily, weekly, two goal reminders and the quote.
	if len(pending) != 5 {
		t.Fatalf("expected 5 pending notifications, got %d: %+v", len(pending), pending)
	}

	state.Settings.Notifications.Enabled = false
	if err := planReminders(ctx, s, state, "me@example.com", now.Add(time.Minute)); err != nil {
		t.Fatalf("plan disabled: %v", err)
	}
	pending, err = s.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 5 {
		t.Fatalf("expected disabled notifications to add nothing, got %d", len(pending))
	}
}

func TestFormatSetting(t *testing.T) {
	cases := map[string]any{"null": nil, "42": float64(42), "1.5": 1.5, "true": true, "UTC": "UTC"}
	for want, v := range cases {
		if got := formatSetting(v); got != want {
			t.Fatalf("formatSetting(%v) = %q, want %q", v, got, want)
		}
	}
}
