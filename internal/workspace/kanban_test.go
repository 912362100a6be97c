package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/services/ai"
	"github.com/benvon/workflow/internal/store"
)

func TestCreateTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, emptyState())
	ctx := context.Background()

	if _, err := f.ws.CreateTask(ctx, "  ", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for blank content, got %v", err)
	}
	if _, err := f.ws.CreateTask(ctx, "x", "urgent"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for an unknown priority, got %v", err)
	}

	task, err := f.ws.CreateTask(ctx, " Write report ", "")
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Content != "Write report" || task.Status != models.TaskStatusTodo || task.Priority != models.PriorityMedium {
		t.Errorf("Unexpected task %+v", task)
	}
	if task.Checklist == nil || len(task.Checklist) != 0 {
		t.Errorf("Expected an empty checklist, got %v", task.Checklist)
	}

	high, _ := f.ws.CreateTask(ctx, "Fix outage", models.PriorityHigh)
	if high.Priority != models.PriorityHigh {
		t.Errorf("Expected high priority, got %s", high.Priority)
	}
	if got := f.ws.Tasks(); len(got) != 2 || got[1].ID != high.ID {
		t.Error("Expected tasks to be appended in order")
	}
	if f.listener.n.Load() != 2 {
		t.Errorf("Expected two change notifications, got %d", f.listener.n.Load())
	}
}

func TestMoveTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, emptyState())
	ctx := context.Background()
	task, _ := f.ws.CreateTask(ctx, "Move me", "")

	steps := []struct {
		dir  models.Direction
		want models.TaskStatus
	}{
		{models.DirectionLeft, models.TaskStatusTodo},
		{models.DirectionRight, models.TaskStatusDoing},
		{models.DirectionRight, models.TaskStatusDone},
		{models.DirectionRight, models.TaskStatusDone},
		{models.DirectionLeft, models.TaskStatusDoing},
	}
	for i, s := range steps {
		got, err := f.ws.MoveTask(ctx, task.ID, s.dir)
		if err != nil {
			t.Fatalf("step %d: MoveTask() error = %v", i, err)
		}
		if got.Status != s.want {
			t.Errorf("step %d: status %s, want %s", i, got.Status, s.want)
		}
	}
	// create + three effective moves
	if f.listener.n.Load() != 4 {
		t.Errorf("Expected no-op moves not to count as changes, got %d notifications", f.listener.n.Load())
	}

	if _, err := f.ws.MoveTask(ctx, task.ID, "up"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
	if _, err := f.ws.MoveTask(ctx, "missing", models.DirectionLeft); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	byStatus := f.ws.TasksByStatus()
	if len(byStatus[models.TaskStatusDoing]) != 1 || len(byStatus[models.TaskStatusTodo]) != 0 {
		t.Errorf("Unexpected grouping %+v", byStatus)
	}
}

func TestEditSession_CommitAndDiscard(t *testing.T) {
	t.Parallel()
	f := newFixture(t, emptyState())
	ctx := context.Background()
	task, _ := f.ws.CreateTask(ctx, "Plan release", "")

	draft, err := f.ws.BeginEdit(task.ID)
	if err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	sid := draft.SessionID

	if _, err := f.ws.SetDraftContent(sid, "Plan the 2.0 release"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ws.SetDraftPriority(sid, models.PriorityHigh); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ws.SetDraftPriority(sid, "critical"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
	d, err := f.ws.AddChecklistItem(sid, " Changelog ")
	if err != nil {
		t.Fatal(err)
	}
	itemID := d.Task.Checklist[0].ID
	if d.Task.Checklist[0].Text != "Changelog" || d.Task.Checklist[0].Done {
		t.Errorf("Unexpected checklist item %+v", d.Task.Checklist[0])
	}
	if _, err := f.ws.AddChecklistItem(sid, ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for an empty item, got %v", err)
	}
	d, _ = f.ws.AddChecklistItem(sid, "Tag")
	tagID := d.Task.Checklist[1].ID
	if _, err := f.ws.ToggleChecklistItem(sid, itemID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ws.RemoveChecklistItem(sid, tagID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ws.ToggleChecklistItem(sid, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if got := f.ws.Tasks()[0]; got.Content != "Plan release" || len(got.Checklist) != 0 {
		t.Errorf("Expected the board to be untouched before commit, got %+v", got)
	}

	// the board moves on while the draft is open
	if _, err := f.ws.MoveTask(ctx, task.ID, models.DirectionRight); err != nil {
		t.Fatal(err)
	}

	committed, err := f.ws.CommitEdit(ctx, sid)
	if err != nil {
		t.Fatalf("CommitEdit() error = %v", err)
	}
	if committed.Content != "Plan the 2.0 release" || committed.Priority != models.PriorityHigh {
		t.Errorf("Unexpected committed task %+v", committed)
	}
	if len(committed.Checklist) != 1 || !committed.Checklist[0].Done {
		t.Errorf("Unexpected checklist %+v", committed.Checklist)
	}
	if committed.Status != models.TaskStatusDoing {
		t.Errorf("Expected the board status to be kept, got %s", committed.Status)
	}
	if _, err := f.ws.Draft(sid); !errors.Is(err, ErrNotFound) {
		t.Error("Expected the session to be closed after commit")
	}

	d, _ = f.ws.BeginEdit(task.ID)
	_, _ = f.ws.SetDraftContent(d.SessionID, "Abandoned")
	if err := f.ws.DiscardEdit(d.SessionID); err != nil {
		t.Fatal(err)
	}
	if f.ws.Tasks()[0].Content != "Plan the 2.0 release" {
		t.Error("Expected a discarded draft not to reach the board")
	}
	if err := f.ws.DiscardEdit(d.SessionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEditSession_Edges(t *testing.T) {
	t.Parallel()
	f := newFixture(t, emptyState())
	ctx := context.Background()
	task, _ := f.ws.CreateTask(ctx, "Short lived", "")

	if _, err := f.ws.BeginEdit("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	d, _ := f.ws.BeginEdit(task.ID)
	_, _ = f.ws.SetDraftContent(d.SessionID, "   ")
	if _, err := f.ws.CommitEdit(ctx, d.SessionID); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for blank content, got %v", err)
	}
	if _, err := f.ws.Draft(d.SessionID); err != nil {
		t.Error("Expected a rejected commit to keep the session open")
	}

	if err := f.ws.DeleteTask(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ws.Draft(d.SessionID); !errors.Is(err, ErrNotFound) {
		t.Error("Expected sessions of a deleted task to be dropped")
	}
	if err := f.ws.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	other, _ := f.ws.CreateTask(ctx, "Many drafts", "")
	first, _ := f.ws.BeginEdit(other.ID)
	for i := 0; i < MaxEditSessions; i++ {
		*f.clock = f.clock.Add(1)
		if _, err := f.ws.BeginEdit(other.ID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.ws.Draft(first.SessionID); !errors.Is(err, ErrNotFound) {
		t.Error("Expected the oldest session to be evicted")
	}
}

func TestAnalyzeBoard(t *testing.T) {
	t.Parallel()
	f := newFixture(t, store.DefaultState())
	f.asst.analyze = ai.TextResult{Text: "Focus on the docs.", Outcome: ai.OutcomeOK}

	res := f.ws.AnalyzeBoard(context.Background())
	if !res.OK() || res.Text != "Focus on the docs." {
		t.Errorf("Unexpected analysis %+v", res)
	}
}
