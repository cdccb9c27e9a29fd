// Package app ties the collections together into one explicit application
// state. Operations take a State and return the updated one; nothing is held
// globally.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/schedule"
	"github.com/verte-zerg/studytrack/internal/settings"
	"github.com/verte-zerg/studytrack/internal/store"
	"github.com/verte-zerg/studytrack/internal/validate"
)

// ErrNoArchive is returned by snapshot operations when no archive is open.
var ErrNoArchive = errors.New("snapshot archive is not configured")

// State is everything the user has recorded.
type State struct {
	Entries  []model.StudyEntry
	Targets  model.WeeklyTargets
	Schedule model.Schedule
	Profile  model.Profile
	Settings settings.Settings
}

// Bundle returns the exportable part of the state.
func (s State) Bundle() model.Bundle {
	entries := s.Entries
	if entries == nil {
		entries = []model.StudyEntry{}
	}
	return model.Bundle{
		StudyData:     entries,
		WeeklyTargets: s.Targets,
		DailySchedule: s.Schedule,
		Profile:       s.Profile,
	}
}

// Options configures a Tracker.
type Options struct {
	// KeepSnapshots bounds the archive after each backup; zero keeps all.
	KeepSnapshots int
	Now           func() time.Time
}

// Tracker loads and persists State through the store.
type Tracker struct {
	store   *store.Store
	archive *store.Archive
	log     *zap.Logger
	opts    Options
}

// NewTracker creates a tracker. archive may be nil when snapshots are unused.
func NewTracker(st *store.Store, archive *store.Archive, opts Options, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{store: st, archive: archive, log: log, opts: opts}
}

// Load reads every collection. Missing or unreadable files fall back to defaults.
func (t *Tracker) Load() State {
	st := State{
		Targets:  model.DefaultWeeklyTargets(),
		Profile:  model.DefaultProfile(),
		Settings: settings.Defaults(),
	}
	t.store.Load(store.StudyData, &st.Entries)
	t.store.Load(store.WeeklyTargets, &st.Targets)
	t.store.Load(store.Profile, &st.Profile)
	t.store.Load(store.AppSettings, &st.Settings)
	if !t.store.Load(store.DailySchedule, &st.Schedule) || len(st.Schedule) == 0 {
		st.Schedule = schedule.Default()
	}

	invalid := 0
	for _, e := range st.Entries {
		if validate.Entry(e) != nil {
			invalid++
		}
	}
	if invalid > 0 {
		t.log.Warn("study log contains invalid entries", zap.Int("count", invalid))
	}
	return st
}

// AddEntries validates and appends entries. Either all are stored or none.
func (t *Tracker) AddEntries(st State, entries ...model.StudyEntry) (State, error) {
	next := make([]model.StudyEntry, 0, len(st.Entries)+len(entries))
	next = append(next, st.Entries...)
	for _, e := range entries {
		e = e.Finalize()
		if err := validate.Entry(e); err != nil {
			return st, err
		}
		next = append(next, e)
	}
	if err := t.store.Save(store.StudyData, next); err != nil {
		return st, err
	}
	st.Entries = next
	t.log.Info("logged study entries", zap.Int("added", len(entries)), zap.Int("total", len(next)))
	return st, nil
}

// ClearEntries deletes the whole study log.
func (t *Tracker) ClearEntries(st State) (State, error) {
	if err := t.store.Remove(store.StudyData); err != nil {
		return st, err
	}
	t.log.Info("cleared study log", zap.Int("removed", len(st.Entries)))
	st.Entries = nil
	return st, nil
}

// SetTarget stores the weekly goal for one subject.
func (t *Tracker) SetTarget(st State, subject model.Subject, target model.WeeklyTarget) (State, error) {
	if err := validate.Target(subject, target); err != nil {
		return st, err
	}
	next := make(model.WeeklyTargets, len(st.Targets)+1)
	for k, v := range st.Targets {
		next[k] = v
	}
	next[subject] = target
	if err := t.store.Save(store.WeeklyTargets, next); err != nil {
		return st, err
	}
	st.Targets = next
	return st, nil
}

// SetSlot updates one schedule slot and reports any overlaps on that day.
// Overlaps are stored as given.
func (t *Tracker) SetSlot(st State, day string, slot model.Slot) (State, []schedule.Overlap, error) {
	next, err := schedule.SetSlot(st.Schedule, day, slot)
	if err != nil {
		return st, nil, err
	}
	if err := t.store.Save(store.DailySchedule, next); err != nil {
		return st, nil, err
	}
	st.Schedule = next
	day, _ = schedule.ParseDay(day)
	var overlaps []schedule.Overlap
	for _, o := range schedule.Overlaps(next) {
		if o.Day == day {
			overlaps = append(overlaps, o)
		}
	}
	if len(overlaps) > 0 {
		t.log.Warn("schedule has overlapping slots", zap.String("day", day), zap.Int("count", len(overlaps)))
	}
	return st, overlaps, nil
}

// SaveProfile replaces the profile.
func (t *Tracker) SaveProfile(st State, p model.Profile) (State, error) {
	if err := validate.Profile(p); err != nil {
		return st, err
	}
	if p.WeakSubjects == nil {
		p.WeakSubjects = []model.Subject{}
	}
	if p.StrongSubjects == nil {
		p.StrongSubjects = []model.Subject{}
	}
	if err := t.store.Save(store.Profile, p); err != nil {
		return st, err
	}
	st.Profile = p
	return st, nil
}

// SaveSettings replaces the settings tree.
func (t *Tracker) SaveSettings(st State, s settings.Settings) (State, error) {
	if err := t.store.Save(store.AppSettings, s); err != nil {
		return st, err
	}
	st.Settings = s
	return st, nil
}

// Export encodes the four primary collections as one document.
func (t *Tracker) Export(st State) ([]byte, error) {
	data, err := json.MarshalIndent(st.Bundle(), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// Import replaces the four primary collections with an exported document.
// The document is rejected whole if a collection is missing or any entry
// fails validation.
func (t *Tracker) Import(st State, data []byte) (State, error) {
	bundle, err := model.DecodeBundle(data)
	if err != nil {
		return st, err
	}
	return t.apply(st, bundle)
}

func (t *Tracker) apply(st State, bundle model.Bundle) (State, error) {
	entries := make([]model.StudyEntry, 0, len(bundle.StudyData))
	for i, e := range bundle.StudyData {
		e = e.Finalize()
		if err := validate.Entry(e); err != nil {
			return st, fmt.Errorf("entry %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	for subj, goal := range bundle.WeeklyTargets {
		if err := validate.Target(subj, goal); err != nil {
			return st, fmt.Errorf("weekly target %s: %w", subj, err)
		}
	}
	if err := validate.Profile(bundle.Profile); err != nil {
		return st, fmt.Errorf("profile: %w", err)
	}
	next := st
	next.Entries = entries
	next.Targets = bundle.WeeklyTargets
	if next.Targets == nil {
		next.Targets = model.DefaultWeeklyTargets()
	}
	next.Schedule = bundle.DailySchedule
	if len(next.Schedule) == 0 {
		next.Schedule = schedule.Default()
	}
	next.Profile = bundle.Profile

	saves := []struct {
		name string
		v    any
	}{
		{store.StudyData, next.Entries},
		{store.WeeklyTargets, next.Targets},
		{store.DailySchedule, next.Schedule},
		{store.Profile, next.Profile},
	}
	for _, s := range saves {
		if err := t.store.Save(s.name, s.v); err != nil {
			// Earlier collections are already replaced; reload to report what is on disk.
			return t.Load(), err
		}
	}
	t.log.Info("imported collections", zap.Int("entries", len(entries)))
	return next, nil
}

// Backup stores a snapshot of the current state, prunes old snapshots and
// records the backup time in the settings.
func (t *Tracker) Backup(ctx context.Context, st State) (State, store.SnapshotInfo, error) {
	if t.archive == nil {
		return st, store.SnapshotInfo{}, ErrNoArchive
	}
	now := t.opts.Now()
	info, err := t.archive.Snapshot(ctx, st.Bundle(), now)
	if err != nil {
		return st, store.SnapshotInfo{}, fmt.Errorf("failed to store snapshot: %w", err)
	}
	if t.opts.KeepSnapshots > 0 {
		removed, err := t.archive.Prune(ctx, t.opts.KeepSnapshots)
		if err != nil {
			t.log.Warn("failed to prune snapshots", zap.Error(err))
		} else if removed > 0 {
			t.log.Debug("pruned snapshots", zap.Int64("removed", removed))
		}
	}
	s := st.Settings
	s.DataManagement.LastBackup = &now
	st, err = t.SaveSettings(st, s)
	if err != nil {
		return st, info, err
	}
	t.log.Info("backup stored", zap.String("id", info.ID), zap.Int("entries", info.Entries))
	return st, info, nil
}

// Snapshots lists stored backups, newest first.
func (t *Tracker) Snapshots(ctx context.Context) ([]store.SnapshotInfo, error) {
	if t.archive == nil {
		return nil, ErrNoArchive
	}
	return t.archive.List(ctx)
}

// Restore replaces the primary collections with a stored snapshot.
func (t *Tracker) Restore(ctx context.Context, st State, id string) (State, error) {
	if t.archive == nil {
		return st, ErrNoArchive
	}
	bundle, err := t.archive.Get(ctx, id)
	if err != nil {
		return st, err
	}
	return t.apply(st, bundle)
}

// BackupDue reports whether automatic backup is enabled and the configured
// frequency has elapsed since the last one.
func BackupDue(s settings.Settings, now time.Time) bool {
	dm := s.DataManagement
	if !dm.AutoBackup {
		return false
	}
	if dm.LastBackup == nil {
		return true
	}
	var every time.Duration
	switch dm.BackupFrequency {
	case "weekly":
		every = 7 * 24 * time.Hour
	case "monthly":
		every = 30 * 24 * time.Hour
	default:
		every = 24 * time.Hour
	}
	return !now.Before(dm.LastBackup.Add(every))
}
