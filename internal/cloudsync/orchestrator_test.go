package cloudsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/notice"
	"github.com/benvon/workflow/internal/remote"
	"github.com/benvon/workflow/internal/store"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu       sync.Mutex
	tasks    []models.Task
	notes    []models.Note
	autoSave bool
	applied  []models.PartialSnapshot
}

func (f *fakeSource) Snapshot(now time.Time) models.SyncSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := append([]models.Task{}, f.tasks...)
	notes := append([]models.Note{}, f.notes...)
	return models.NewSyncSnapshot(models.DefaultProjects(), []models.TimesheetEntry{}, notes, tasks, now)
}

func (f *fakeSource) Apply(_ context.Context, snap models.PartialSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, snap)
	if snap.Tasks != nil {
		f.tasks = append([]models.Task{}, *snap.Tasks...)
	}
	if snap.Notes != nil {
		f.notes = append([]models.Note{}, *snap.Notes...)
	}
}

func (f *fakeSource) AutoSave() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoSave
}

func (f *fakeSource) addTask(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, models.Task{ID: content, Content: content, Status: models.TaskStatusTodo, Priority: models.PriorityMedium, Checklist: []models.ChecklistItem{}})
}

const testDebounce = 40 * time.Millisecond

func newTestOrchestrator(t *testing.T, src *fakeSource, adapter remote.Adapter) (*Orchestrator, *notice.Board) {
	t.Helper()
	board := notice.NewBoard(time.Minute)
	o := New(src, adapter, board, zap.NewNop(), Config{
		Debounce:       testDebounce,
		SuccessDisplay: 60 * time.Millisecond,
		Timeout:        time.Second,
	})
	t.Cleanup(func() {
		o.Close()
		board.Close()
	})
	return o, board
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNotify_DebouncesIntoOneSave(t *testing.T) {
	t.Parallel()
	src := &fakeSource{autoSave: true}
	mem := remote.NewMemory()
	o, _ := newTestOrchestrator(t, src, mem)
	o.MarkReady()

	for _, c := range []string{"a", "b", "c", "d"} {
		src.addTask(c)
		o.Notify()
		time.Sleep(testDebounce / 4)
	}
	if !o.Status().Pending {
		t.Error("Expected a pending save inside the debounce window")
	}

	waitFor(t, "the auto-save", func() bool { return mem.Saves() == 1 })
	time.Sleep(2 * testDebounce)
	if mem.Saves() != 1 {
		t.Errorf("Expected exactly one save, got %d", mem.Saves())
	}

	snap, _, err := mem.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(*snap.Tasks) != 4 {
		t.Errorf("Expected the final state to be saved, got %d tasks", len(*snap.Tasks))
	}
	if snap.LastUpdated == "" {
		t.Error("Expected a timestamp in the saved file")
	}
}

func TestNotify_IgnoredWhileInitializing(t *testing.T) {
	t.Parallel()
	src := &fakeSource{autoSave: true}
	mem := remote.NewMemory()
	o, _ := newTestOrchestrator(t, src, mem)

	o.Notify()
	if o.Status().Pending {
		t.Error("Expected no pending save before MarkReady")
	}
	time.Sleep(3 * testDebounce)
	if mem.Saves() != 0 {
		t.Errorf("Expected no save while initializing, got %d", mem.Saves())
	}
	if o.Status().Phase != PhaseInitializing {
		t.Errorf("Unexpected phase %s", o.Status().Phase)
	}
}

func TestAutoSave_Gates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		autoSave bool
		ready    bool
		signedIn bool
		want     int
	}{
		{"all gates open", true, true, true, 1},
		{"auto-save off", false, true, true, 0},
		{"remote not ready", true, false, true, 0},
		{"signed out", true, true, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := &fakeSource{autoSave: tt.autoSave}
			mem := remote.NewMemory()
			mem.SetReady(tt.ready)
			mem.SetSignedIn(tt.signedIn)
			o, _ := newTestOrchestrator(t, src, mem)
			o.MarkReady()

			o.Notify()
			waitFor(t, "the debounce window", func() bool { return !o.Status().Pending })
			time.Sleep(testDebounce)
			if mem.Saves() != tt.want {
				t.Errorf("Expected %d saves, got %d", tt.want, mem.Saves())
			}
		})
	}
}

func TestStatus_SuccessReturnsToIdle(t *testing.T) {
	t.Parallel()
	src := &fakeSource{autoSave: true}
	mem := remote.NewMemory()
	o, board := newTestOrchestrator(t, src, mem)
	o.MarkReady()

	if err := o.SaveNow(context.Background(), false); err != nil {
		t.Fatalf("SaveNow() error = %v", err)
	}
	st := o.Status()
	if st.Status != StatusSuccess || st.Revision == "" || st.LastSavedAt == nil {
		t.Errorf("Unexpected status after save %+v", st)
	}
	if n, ok := board.Current(); !ok || n.Text != NoticeSaved {
		t.Errorf("Expected the saved notice, got %+v", n)
	}
	waitFor(t, "the idle status", func() bool { return o.Status().Status == StatusIdle })
}

func TestStatus_ErrorStaysUntilNextAttempt(t *testing.T) {
	t.Parallel()
	src := &fakeSource{autoSave: true}
	mem := remote.NewMemory()
	o, board := newTestOrchestrator(t, src, mem)
	o.MarkReady()

	mem.FailSaves(errors.New("network down"))
	o.Notify()
	waitFor(t, "the error status", func() bool { return o.Status().Status == StatusError })
	time.Sleep(2 * testDebounce)
	st := o.Status()
	if st.Status != StatusError || st.LastError == "" {
		t.Errorf("Expected the error to stay, got %+v", st)
	}
	if _, ok := board.Current(); ok {
		t.Error("Expected auto-save failures not to post a notice")
	}

	mem.FailSaves(nil)
	o.Notify()
	waitFor(t, "the retry", func() bool { return mem.Saves() == 1 })
	if st := o.Status(); st.LastError != "" {
		t.Errorf("Expected the error to clear, got %+v", st)
	}
}

func TestSaveNow_RequiresUsableRemote(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	mem := remote.NewMemory()
	o, _ := newTestOrchestrator(t, src, mem)

	mem.SetSignedIn(false)
	if err := o.SaveNow(context.Background(), false); !errors.Is(err, remote.ErrNotSignedIn) {
		t.Errorf("Expected ErrNotSignedIn, got %v", err)
	}
	mem.SetReady(false)
	if _, err := o.LoadNow(context.Background()); !errors.Is(err, remote.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestSaveNow_ReplacesPendingAutoSave(t *testing.T) {
	t.Parallel()
	src := &fakeSource{autoSave: true}
	mem := remote.NewMemory()
	o, _ := newTestOrchestrator(t, src, mem)
	o.MarkReady()

	o.Notify()
	if err := o.SaveNow(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * testDebounce)
	if mem.Saves() != 1 {
		t.Errorf("Expected the manual save to replace the scheduled one, got %d saves", mem.Saves())
	}
}

func TestRoundTrip_SaveThenLoad(t *testing.T) {
	t.Parallel()
	mem := remote.NewMemory()

	writer := &fakeSource{}
	writer.addTask("Buy milk")
	w, _ := newTestOrchestrator(t, writer, mem)
	if err := w.SaveNow(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	reader := &fakeSource{}
	r, board := newTestOrchestrator(t, reader, mem)
	res, err := r.LoadNow(context.Background())
	if err != nil {
		t.Fatalf("LoadNow() error = %v", err)
	}
	if !res.Found || res.Revision == "" || res.LastUpdated == "" {
		t.Errorf("Unexpected load result %+v", res)
	}
	if len(reader.tasks) != 1 || reader.tasks[0].Content != "Buy milk" {
		t.Errorf("Expected the saved tasks, got %+v", reader.tasks)
	}
	if n, _ := board.Current(); n.Text != NoticeLoaded {
		t.Errorf("Expected the loaded notice, got %q", n.Text)
	}
	if r.Status().Revision != res.Revision {
		t.Error("Expected the loaded revision to be tracked")
	}
}

func TestLoadNow_PartialFileLeavesMissingKeys(t *testing.T) {
	t.Parallel()
	mem := remote.NewMemory()
	mem.Put([]byte(`{"notes":[{"id":"n1","title":"Remote","content":"","updatedAt":"2024-03-15T10:00:00Z"}]}`))

	src := &fakeSource{}
	src.addTask("Local only")
	o, _ := newTestOrchestrator(t, src, mem)
	if _, err := o.LoadNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(src.tasks) != 1 || src.tasks[0].Content != "Local only" {
		t.Errorf("Expected local tasks to stay, got %+v", src.tasks)
	}
	if len(src.notes) != 1 || src.notes[0].Title != "Remote" {
		t.Errorf("Expected remote notes, got %+v", src.notes)
	}
}

func TestLoadNow_NoBackup(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	o, board := newTestOrchestrator(t, src, remote.NewMemory())

	res, err := o.LoadNow(context.Background())
	if err != nil {
		t.Fatalf("LoadNow() error = %v", err)
	}
	if res.Found {
		t.Error("Expected no backup")
	}
	if len(src.applied) != 0 {
		t.Error("Expected nothing to be applied")
	}
	if n, ok := board.Current(); !ok || n.Kind != notice.KindInfo || n.Text != NoticeNoBackup {
		t.Errorf("Unexpected notice %+v", n)
	}
}

func TestSave_RevisionConflict(t *testing.T) {
	t.Parallel()
	mem := remote.NewMemory()
	src := &fakeSource{}
	o, board := newTestOrchestrator(t, src, mem)

	if err := o.SaveNow(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	// another device writes in between
	mem.Put([]byte(`{"tasks":[]}`))

	err := o.SaveNow(context.Background(), false)
	if !errors.Is(err, remote.ErrRevisionConflict) {
		t.Fatalf("Expected a revision conflict, got %v", err)
	}
	if o.Status().Status != StatusError {
		t.Errorf("Expected error status, got %s", o.Status().Status)
	}
	if n, _ := board.Current(); n.Text != NoticeSaveConflict {
		t.Errorf("Expected the conflict notice, got %q", n.Text)
	}
	if string(mem.Raw()) != `{"tasks":[]}` {
		t.Error("Expected the remote file to be left alone")
	}

	if err := o.SaveNow(context.Background(), true); err != nil {
		t.Fatalf("forced SaveNow() error = %v", err)
	}
	if string(mem.Raw()) == `{"tasks":[]}` {
		t.Error("Expected the forced save to overwrite the file")
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()
	src := &fakeSource{autoSave: true}
	mem := remote.NewMemory()
	board := notice.NewBoard(time.Minute)
	defer board.Close()
	o := New(src, mem, board, zap.NewNop(), Config{Debounce: time.Hour})
	defer o.Close()
	o.MarkReady()

	if err := o.Flush(context.Background()); err != nil || mem.Saves() != 0 {
		t.Fatalf("Expected Flush without changes to do nothing, got %v / %d saves", err, mem.Saves())
	}

	o.Notify()
	if err := o.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if mem.Saves() != 1 || o.Status().Pending {
		t.Errorf("Expected the pending save to run, got %d saves", mem.Saves())
	}
}

func TestClose_StopsPendingSave(t *testing.T) {
	t.Parallel()
	src := &fakeSource{autoSave: true}
	mem := remote.NewMemory()
	o, _ := newTestOrchestrator(t, src, mem)
	o.MarkReady()

	o.Notify()
	o.Close()
	o.Notify()
	time.Sleep(3 * testDebounce)
	if mem.Saves() != 0 {
		t.Errorf("Expected no save after Close, got %d", mem.Saves())
	}
}

func TestRestoreRevision_ConflictAfterRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := remote.NewMemory()
	local := store.NewLocalStore(store.NewMemoryKV(), zap.NewNop())
	cfg := Config{Debounce: testDebounce, Timeout: time.Second, Revisions: local}

	first := New(&fakeSource{}, mem, nil, zap.NewNop(), cfg)
	if err := first.SaveNow(ctx, false); err != nil {
		t.Fatal(err)
	}
	saved := first.Status().Revision
	first.Close()
	if got := local.LoadSyncRevision(ctx, mem.Name()); got != saved {
		t.Fatalf("Expected revision %q to be recorded, got %q", saved, got)
	}

	// another device writes while this process is down
	mem.Put([]byte(`{"tasks":[]}`))

	second := New(&fakeSource{}, mem, nil, zap.NewNop(), cfg)
	defer second.Close()
	second.RestoreRevision(ctx)
	if second.Status().Revision != saved {
		t.Errorf("Expected the restored revision %q, got %q", saved, second.Status().Revision)
	}
	if err := second.SaveNow(ctx, false); !errors.Is(err, remote.ErrRevisionConflict) {
		t.Fatalf("Expected a revision conflict after the restart, got %v", err)
	}
	if string(mem.Raw()) != `{"tasks":[]}` {
		t.Error("Expected the other device's file to be left alone")
	}

	if _, err := second.LoadNow(ctx); err != nil {
		t.Fatal(err)
	}
	if got := local.LoadSyncRevision(ctx, mem.Name()); got != second.Status().Revision {
		t.Errorf("Expected the loaded revision to be recorded, got %q", got)
	}
}
