package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

func TestArchiveSnapshots(t *testing.T) {
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() {
		_ = archive.Close()
	})

	ctx := context.Background()
	base := time.Date(2025, 2, 20, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		bundle := model.Bundle{
			StudyData:     sampleEntries()[:1],
			WeeklyTargets: model.DefaultWeeklyTargets(),
			DailySchedule: model.Schedule{},
			Profile:       model.DefaultProfile(),
		}
		info, err := archive.Snapshot(ctx, bundle, base.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		ids = append(ids, info.ID)
	}

	list, err := archive.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Fatalf("unexpected order: %+v", list)
	}

	bundle, err := archive.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if bundle.WeeklyTargets[model.Physics].Questions != 100 {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}

	removed, err := archive.Prune(ctx, 1)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 snapshots pruned, got %d", removed)
	}
	if _, err := archive.Get(ctx, ids[0]); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected pruned snapshot to be gone, got %v", err)
	}
}
