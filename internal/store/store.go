// Package store handles persistence of the JSON collections.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"go.uber.org/zap"
)

// Collection file names inside the data directory.
const (
	StudyData     = "neet_study_data.json"
	WeeklyTargets = "weekly_targets.json"
	DailySchedule = "daily_schedule.json"
	Profile       = "profile_data.json"
	Accounts      = "auth.json"
	AppSettings   = "app_settings.json"
)

const backupSuffix = ".backup"

// PersistenceError reports a failed write of a collection.
type PersistenceError struct {
	Name string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store reads and writes whole collections as JSON documents in one directory.
type Store struct {
	dir string
	log *zap.Logger

	writeFile func(name string, data []byte, perm os.FileMode) error
}

// Open prepares the data directory. Failing to create it is fatal for callers.
func Open(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log, writeFile: os.WriteFile}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of a collection.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Load decodes the named collection into v, a non-nil pointer, and reports
// whether it was found. Keys absent from the file keep the value v already
// holds. A missing, unreadable or partly undecodable file leaves v untouched;
// read and decode problems are logged, never returned.
func (s *Store) Load(name string, v any) bool {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Error("failed to read collection", zap.String("collection", name), zap.Error(err))
		}
		return false
	}
	decoded, err := decodeOnto(data, v)
	if err != nil {
		s.log.Error("failed to decode collection", zap.String("collection", name), zap.Error(err))
		return false
	}
	reflect.ValueOf(v).Elem().Set(decoded)
	return true
}

// decodeOnto decodes data over a deep copy of *v, so a decode error midway
// cannot leak into the caller's value.
func decodeOnto(data []byte, v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("load target must be a non-nil pointer, got %T", v)
	}
	current, err := json.Marshal(v)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("failed to copy load target: %w", err)
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(current, tmp.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("failed to copy load target: %w", err)
	}
	if err := json.Unmarshal(data, tmp.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return tmp.Elem(), nil
}

// Save replaces the named collection with v. The current file is moved aside
// to a .backup copy first and restored if the write fails.
func (s *Store) Save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		s.log.Error("failed to encode collection", zap.String("collection", name), zap.Error(err))
		return &PersistenceError{Name: name, Op: "encode", Err: err}
	}

	path := s.Path(name)
	backup := path + backupSuffix
	hasBackup := false
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, backup); err != nil {
			s.log.Error("failed to back up collection", zap.String("collection", name), zap.Error(err))
			return &PersistenceError{Name: name, Op: "back up", Err: err}
		}
		hasBackup = true
	}

	if err := s.writeFile(path, data, 0o644); err != nil {
		s.log.Error("failed to write collection", zap.String("collection", name), zap.Error(err))
		if hasBackup {
			if rerr := os.Rename(backup, path); rerr != nil {
				s.log.Error("failed to restore backup", zap.String("collection", name), zap.Error(rerr))
			}
		}
		return &PersistenceError{Name: name, Op: "write", Err: err}
	}

	if hasBackup {
		if err := os.Remove(backup); err != nil {
			// The new content is in place; a stale backup is only clutter.
			s.log.Warn("failed to remove backup", zap.String("collection", name), zap.Error(err))
		}
	}
	s.log.Debug("saved collection", zap.String("collection", name), zap.Int("bytes", len(data)))
	return nil
}

// Remove deletes the named collection. A missing file is not an error.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error("failed to remove collection", zap.String("collection", name), zap.Error(err))
		return &PersistenceError{Name: name, Op: "remove", Err: err}
	}
	return nil
}
