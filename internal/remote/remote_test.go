package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benvon/workflow/internal/models"
)

func testSnapshot(content string) models.SyncSnapshot {
	return models.NewSyncSnapshot(
		models.DefaultProjects(),
		[]models.TimesheetEntry{},
		[]models.Note{},
		[]models.Task{{ID: "t1", Content: content, Status: models.TaskStatusTodo, Priority: models.PriorityMedium}},
		time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	)
}

// adapterContract runs the behavior every adapter must share
func adapterContract(t *testing.T, a Adapter) {
	t.Helper()
	ctx := context.Background()

	if _, _, err := a.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before the first save, got %v", err)
	}

	rev1, err := a.Save(ctx, testSnapshot("first"), "")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if rev1 == "" {
		t.Fatal("Expected a revision after save")
	}

	snap, rev, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rev != rev1 {
		t.Errorf("Expected revision %s, got %s", rev1, rev)
	}
	if snap.Tasks == nil || len(*snap.Tasks) != 1 || (*snap.Tasks)[0].Content != "first" {
		t.Errorf("Unexpected tasks after load: %+v", snap.Tasks)
	}
	if snap.Projects == nil || len(*snap.Projects) != 3 {
		t.Errorf("Expected the seeded projects, got %+v", snap.Projects)
	}

	rev2, err := a.Save(ctx, testSnapshot("second"), rev1)
	if err != nil {
		t.Fatalf("conditional Save() error = %v", err)
	}
	if rev2 == rev1 {
		t.Error("Expected the revision to change")
	}

	_, err = a.Save(ctx, testSnapshot("stale"), rev1)
	if !errors.Is(err, ErrRevisionConflict) {
		t.Fatalf("Expected a revision conflict, got %v", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.ExpectedRevision != rev1 || conflict.CurrentRevision != rev2 {
		t.Errorf("Unexpected conflict details: %+v", conflict)
	}

	if _, err := a.Save(ctx, testSnapshot("forced"), ""); err != nil {
		t.Fatalf("unconditional Save() error = %v", err)
	}
	snap, _, err = a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if (*snap.Tasks)[0].Content != "forced" {
		t.Errorf("Expected the forced write to win, got %q", (*snap.Tasks)[0].Content)
	}
}

func TestMemoryAdapter(t *testing.T) {
	t.Parallel()
	adapterContract(t, NewMemory())
}

func TestDirAdapter(t *testing.T) {
	t.Parallel()
	d, err := NewDir(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}
	if filepath.Base(d.Path()) != DefaultFileName {
		t.Errorf("Expected default file name, got %s", d.Path())
	}
	adapterContract(t, d)

	info, err := os.Stat(d.Path())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestDirAdapter_MalformedFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	d, err := NewDir(dir, "backup.json")
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "backup.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.Load(context.Background()); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected a decode error, got %v", err)
	}
}

func TestMemoryAdapter_PartialFile(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	rev := m.Put([]byte(`{"notes":[{"id":"n1","title":"T","content":"C","updatedAt":"2024-03-15T10:00:00Z"}]}`))

	snap, got, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != rev {
		t.Errorf("Expected revision %s, got %s", rev, got)
	}
	if snap.Projects != nil || snap.Tasks != nil || snap.Entries != nil {
		t.Error("Expected absent keys to stay nil")
	}
	if snap.Notes == nil || (*snap.Notes)[0].Title != "T" {
		t.Errorf("Unexpected notes: %+v", snap.Notes)
	}
}

func TestMemoryAdapter_Failures(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	boom := errors.New("boom")
	m.FailSaves(boom)
	if _, err := m.Save(context.Background(), testSnapshot("x"), ""); !errors.Is(err, boom) {
		t.Errorf("Expected injected save error, got %v", err)
	}
	m.FailSaves(nil)
	m.FailLoads(boom)
	if _, _, err := m.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected injected load error, got %v", err)
	}
	if m.Saves() != 0 {
		t.Errorf("Expected no successful saves, got %d", m.Saves())
	}
}
