package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/studytrack/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrSnapshotNotFound is returned when a snapshot id is unknown.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	ID        string
	CreatedAt time.Time
	Entries   int
	SizeBytes int
}

// Archive keeps timestamped snapshots of the exported collections in SQLite.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens or creates the snapshot database and applies migrations.
func OpenArchive(path string) (*Archive, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	archive := &Archive{db: db}
	if err := archive.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return archive, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			entries INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot stores the bundle taken at the given time.
func (a *Archive) Snapshot(ctx context.Context, bundle model.Bundle, at time.Time) (SnapshotInfo, error) {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	info := SnapshotInfo{
		ID:        uuid.NewString(),
		CreatedAt: at,
		Entries:   len(bundle.StudyData),
		SizeBytes: len(payload),
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, entries, payload) VALUES (?, ?, ?, ?)`,
		info.ID,
		at.UTC().Format(time.RFC3339Nano),
		info.Entries,
		payload,
	)
	if err != nil {
		return SnapshotInfo{}, err
	}
	return info, nil
}

// List returns snapshots newest first.
func (a *Archive) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, created_at, entries, length(payload) FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &createdAt, &info.Entries, &info.SizeBytes); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		info.CreatedAt = parsed
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads the bundle stored under id.
func (a *Archive) Get(ctx context.Context, id string) (model.Bundle, error) {
	var payload []byte
	err := a.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bundle{}, ErrSnapshotNotFound
	}
	if err != nil {
		return model.Bundle{}, err
	}
	return model.DecodeBundle(payload)
}

// Prune keeps the newest keep snapshots and deletes the rest.
func (a *Archive) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := a.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY created_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
