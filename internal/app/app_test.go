package app

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/settings"
	"github.com/verte-zerg/studytrack/internal/store"
	"github.com/verte-zerg/studytrack/internal/validate"
)

var fixedNow = time.Date(2025, 2, 20, 18, 0, 0, 0, time.UTC)

func newTracker(t *testing.T, withArchive bool) (*Tracker, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	log := zaptest.NewLogger(t)
	st, err := store.Open(dir, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	var archive *store.Archive
	if withArchive {
		archive, err = store.OpenArchive(filepath.Join(dir, "snapshots.db"))
		if err != nil {
			t.Fatalf("open archive: %v", err)
		}
		t.Cleanup(func() {
			_ = archive.Close()
		})
	}
	return NewTracker(st, archive, Options{KeepSnapshots: 2, Now: func() time.Time { return fixedNow }}, log), st
}

func physics(date string, hours float64) model.StudyEntry {
	return model.StudyEntry{Date: date, Subject: model.Physics, Duration: model.Hours(hours), Performance: 8, Motivation: 7}
}

func TestLoadDefaults(t *testing.T) {
	tr, _ := newTracker(t, false)
	st := tr.Load()
	if len(st.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(st.Entries))
	}
	if st.Targets[model.Chemistry].Hours != 10 {
		t.Fatalf("expected default targets, got %+v", st.Targets)
	}
	if len(st.Schedule) != 7 || st.Profile.TargetCollege != "AIIMS" || st.Settings.StudyGoals.WeeklyHours != 42 {
		t.Fatalf("expected defaults, got %+v", st)
	}
}

func TestAddEntries(t *testing.T) {
	tr, _ := newTracker(t, false)
	st := tr.Load()
	st, err := tr.AddEntries(st, physics("2025-02-20", 2))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if st.Entries[0].Result != model.ResultGood || st.Entries[0].Day != "Thursday" {
		t.Fatalf("expected derived fields, got %+v", st.Entries[0])
	}

	bad := physics("2025-02-30", 1)
	next, err := tr.AddEntries(st, physics("2025-02-21", 1), bad)
	var verr *validate.ValidationError
	if !errors.As(err, &verr) || verr.Field != validate.KeyDate {
		t.Fatalf("expected date validation error, got %v", err)
	}
	if len(next.Entries) != 1 {
		t.Fatalf("expected batch to be rejected whole, got %d entries", len(next.Entries))
	}

	reloaded := tr.Load()
	if len(reloaded.Entries) != 1 || reloaded.Entries[0].Date != "2025-02-20" {
		t.Fatalf("unexpected persisted entries: %+v", reloaded.Entries)
	}

	cleared, err := tr.ClearEntries(reloaded)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(cleared.Entries) != 0 || len(tr.Load().Entries) != 0 {
		t.Fatalf("expected empty log after clear")
	}
}

func TestSetTargetAndSlot(t *testing.T) {
	tr, _ := newTracker(t, false)
	st := tr.Load()
	st, err := tr.SetTarget(st, model.Botany, model.WeeklyTarget{Hours: 12, Questions: 150})
	if err != nil {
		t.Fatalf("set target: %v", err)
	}
	if _, err := tr.SetTarget(st, "Math", model.WeeklyTarget{}); err == nil {
		t.Fatalf("expected unknown subject error")
	}
	if _, err := tr.SetTarget(st, model.Botany, model.WeeklyTarget{Hours: -1}); err == nil {
		t.Fatalf("expected negative target error")
	}
	if got := tr.Load().Targets[model.Botany]; got.Hours != 12 || got.Questions != 150 {
		t.Fatalf("unexpected persisted target: %+v", got)
	}

	st, overlaps, err := tr.SetSlot(st, "Saturday", model.Slot{Subject: model.Physics, Start: "09:00", End: "11:00", Enabled: true})
	if err != nil {
		t.Fatalf("set slot: %v", err)
	}
	if len(overlaps) != 0 {
		t.Fatalf("expected no overlaps on Saturday, got %v", overlaps)
	}
	_, overlaps, err = tr.SetSlot(st, "Saturday", model.Slot{Subject: model.Chemistry, Start: "10:00", End: "12:00", Enabled: true})
	if err != nil {
		t.Fatalf("set slot: %v", err)
	}
	if len(overlaps) != 1 {
		t.Fatalf("expected the overlap to be reported, got %v", overlaps)
	}
	if sat := tr.Load().Schedule["Saturday"]; !sat[1].Enabled || sat[1].Start != "10:00" {
		t.Fatalf("expected overlapping slot to be stored, got %+v", sat)
	}
}

func TestProfileAndSettings(t *testing.T) {
	tr, _ := newTracker(t, false)
	st := tr.Load()
	if _, err := tr.SaveProfile(st, model.Profile{Name: "A", WeakSubjects: []model.Subject{"Math"}}); err == nil {
		t.Fatalf("expected unknown subject error")
	}
	st, err := tr.SaveProfile(st, model.Profile{Name: "Asha", ExamYear: 2026, WeakSubjects: []model.Subject{model.Physics}})
	if err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if st.Profile.StrongSubjects == nil {
		t.Fatalf("expected empty strong subjects list")
	}

	s, err := st.Settings.Set("preferences.theme", "dark")
	if err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if _, err := tr.SaveSettings(st, s); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	reloaded := tr.Load()
	if reloaded.Profile.Name != "Asha" || reloaded.Settings.Preferences.Theme != "dark" {
		t.Fatalf("unexpected reload: %+v", reloaded)
	}
}

func TestExportImport(t *testing.T) {
	tr, _ := newTracker(t, false)
	st := tr.Load()
	st, err := tr.AddEntries(st, physics("2025-02-19", 1.5), physics("2025-02-20", 2))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	data, err := tr.Export(st)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(data), `"Study Duration": "1.5 hr"`) {
		t.Fatalf("expected legacy duration format in export:\n%s", data)
	}

	other, _ := newTracker(t, false)
	imported, err := other.Import(other.Load(), data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported.Entries) != 2 || len(other.Load().Entries) != 2 {
		t.Fatalf("expected imported entries to persist")
	}

	if _, err := other.Import(imported, []byte(`{"study_data": [], "weekly_targets": {}, "profile": {}}`)); err == nil {
		t.Fatalf("expected missing key to reject the bundle")
	}
	badEntry := `{"study_data": [{"Date": "2025-02-20", "Subject": "Math", "Study Duration": "1 hr"}],
		"weekly_targets": {}, "daily_schedule": {}, "profile": {}}`
	if _, err := other.Import(imported, []byte(badEntry)); err == nil {
		t.Fatalf("expected invalid entry to reject the bundle")
	}
	badTarget := `{"study_data": [], "weekly_targets": {"Physics": {"hours": -3, "questions": 10}},
		"daily_schedule": {}, "profile": {}}`
	if _, err := other.Import(imported, []byte(badTarget)); err == nil {
		t.Fatalf("expected negative target to reject the bundle")
	}
	if len(other.Load().Entries) != 2 {
		t.Fatalf("expected rejected imports to leave data alone")
	}
}

func TestAddEntriesRejectsNaNDuration(t *testing.T) {
	tr, _ := newTracker(t, false)
	st := tr.Load()
	if _, err := tr.AddEntries(st, physics("2025-02-20", math.NaN())); err == nil {
		t.Fatalf("expected NaN duration to be rejected")
	}
	if len(tr.Load().Entries) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestBackupRestore(t *testing.T) {
	tr, _ := newTracker(t, true)
	ctx := context.Background()
	st := tr.Load()
	st, err := tr.AddEntries(st, physics("2025-02-20", 2))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	st, info, err := tr.Backup(ctx, st)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if info.Entries != 1 {
		t.Fatalf("expected 1 entry in snapshot, got %d", info.Entries)
	}
	if st.Settings.DataManagement.LastBackup == nil || !st.Settings.DataManagement.LastBackup.Equal(fixedNow) {
		t.Fatalf("expected last backup to be recorded")
	}

	st, err = tr.ClearEntries(st)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	st, err = tr.Restore(ctx, st, info.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(st.Entries) != 1 || len(tr.Load().Entries) != 1 {
		t.Fatalf("expected restored entries")
	}
	if _, err := tr.Restore(ctx, st, "missing"); !errors.Is(err, store.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if st, _, err = tr.Backup(ctx, st); err != nil {
			t.Fatalf("backup %d: %v", i, err)
		}
	}
	snaps, err := tr.Snapshots(ctx)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected pruning to keep 2 snapshots, got %d", len(snaps))
	}

	plain, _ := newTracker(t, false)
	if _, _, err := plain.Backup(ctx, plain.Load()); !errors.Is(err, ErrNoArchive) {
		t.Fatalf("expected ErrNoArchive, got %v", err)
	}
}

func TestBackupDue(t *testing.T) {
	s := settings.Defaults()
	if !BackupDue(s, fixedNow) {
		t.Fatalf("expected first backup to be due")
	}
	last := fixedNow.Add(-23 * time.Hour)
	s.DataManagement.LastBackup = &last
	if BackupDue(s, fixedNow) {
		t.Fatalf("expected daily backup not yet due")
	}
	s.DataManagement.BackupFrequency = "weekly"
	last = fixedNow.Add(-8 * 24 * time.Hour)
	if !BackupDue(s, fixedNow) {
		t.Fatalf("expected weekly backup to be due")
	}
	s.DataManagement.AutoBackup = false
	if BackupDue(s, fixedNow) {
		t.Fatalf("expected disabled auto backup to never be due")
	}
}
