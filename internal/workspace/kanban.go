package workspace

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/services/ai"
	"github.com/benvon/workflow/internal/store"
)

// MaxEditSessions bounds the number of open task drafts; the oldest is dropped first
const MaxEditSessions = 32

// editSession is an isolated copy of a task being edited
type editSession struct {
	id        string
	draft     models.Task
	startedAt time.Time
}

// Draft is the client view of an edit session
type Draft struct {
	SessionID string      `json:"sessionId"`
	Task      models.Task `json:"task"`
}

func (s *editSession) view() Draft {
	return Draft{SessionID: s.id, Task: s.draft.Clone()}
}

// Tasks returns a copy of the board
func (w *Workspace) Tasks() []models.Task {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneTasks(w.tasks)
}

// TasksByStatus groups the board by column, keeping collection order within a column
func (w *Workspace) TasksByStatus() map[models.TaskStatus][]models.Task {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[models.TaskStatus][]models.Task, 3)
	for _, s := range models.TaskStatuses() {
		out[s] = []models.Task{}
	}
	for _, t := range w.tasks {
		out[t.Status] = append(out[t.Status], t.Clone())
	}
	return out
}

func (w *Workspace) taskIndexLocked(id string) int {
	for i, t := range w.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// CreateTask appends a new task in the todo column. An empty priority means medium.
func (w *Workspace) CreateTask(ctx context.Context, content string, priority models.Priority) (models.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Task{}, invalid("task content must not be empty")
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Task{}, invalid("unknown priority %q", priority)
	}

	w.mu.Lock()
	t := w.newTaskLocked(content, priority)
	w.tasks = append(w.tasks, t)
	l := w.changed(ctx, store.KeyTasks)
	w.mu.Unlock()

	notify(l)
	return t.Clone(), nil
}

func (w *Workspace) newTaskLocked(content string, priority models.Priority) models.Task {
	return models.Task{
		ID:        w.newID(),
		Content:   content,
		Status:    models.TaskStatusTodo,
		Priority:  priority,
		Checklist: []models.ChecklistItem{},
	}
}

// MoveTask moves a task one column left or right. Moving past either end leaves it
// where it is and does not count as a change.
func (w *Workspace) MoveTask(ctx context.Context, id string, dir models.Direction) (models.Task, error) {
	if !dir.Valid() {
		return models.Task{}, invalid("direction must be left or right")
	}

	w.mu.Lock()
	i := w.taskIndexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return models.Task{}, notFound("task", id)
	}
	next := w.tasks[i].Status.Move(dir)
	if next == w.tasks[i].Status {
		t := w.tasks[i].Clone()
		w.mu.Unlock()
		return t, nil
	}
	w.tasks[i].Status = next
	t := w.tasks[i].Clone()
	l := w.changed(ctx, store.KeyTasks)
	w.mu.Unlock()

	notify(l)
	return t, nil
}

// DeleteTask removes a task and abandons its edit sessions
func (w *Workspace) DeleteTask(ctx context.Context, id string) error {
	w.mu.Lock()
	i := w.taskIndexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return notFound("task", id)
	}
	w.tasks = append(w.tasks[:i:i], w.tasks[i+1:]...)
	for sid, s := range w.edits {
		if s.draft.ID == id {
			delete(w.edits, sid)
		}
	}
	l := w.changed(ctx, store.KeyTasks)
	w.mu.Unlock()

	notify(l)
	return nil
}

// BeginEdit opens an edit session on a copy of the task. Nothing done to the
// draft reaches the board until CommitEdit.
func (w *Workspace) BeginEdit(taskID string) (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.taskIndexLocked(taskID)
	if i < 0 {
		return Draft{}, notFound("task", taskID)
	}
	if len(w.edits) >= MaxEditSessions {
		w.evictOldestEditLocked()
	}
	s := &editSession{id: w.newID(), draft: w.tasks[i].Clone(), startedAt: w.now()}
	w.edits[s.id] = s
	return s.view(), nil
}

func (w *Workspace) evictOldestEditLocked() {
	ids := make([]string, 0, len(w.edits))
	for id := range w.edits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		return w.edits[ids[a]].startedAt.Before(w.edits[ids[b]].startedAt)
	})
	delete(w.edits, ids[0])
}

// Draft returns the current state of an edit session
func (w *Workspace) Draft(sessionID string) (Draft, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.edits[sessionID]
	if !ok {
		return Draft{}, notFound("edit session", sessionID)
	}
	return s.view(), nil
}

// editDraft applies fn to the draft of a session
func (w *Workspace) editDraft(sessionID string, fn func(*models.Task) error) (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.edits[sessionID]
	if !ok {
		return Draft{}, notFound("edit session", sessionID)
	}
	if err := fn(&s.draft); err != nil {
		return Draft{}, err
	}
	return s.view(), nil
}

// SetDraftContent replaces the draft's text
func (w *Workspace) SetDraftContent(sessionID, content string) (Draft, error) {
	return w.editDraft(sessionID, func(t *models.Task) error {
		t.Content = content
		return nil
	})
}

// SetDraftPriority replaces the draft's priority
func (w *Workspace) SetDraftPriority(sessionID string, p models.Priority) (Draft, error) {
	if !p.Valid() {
		return Draft{}, invalid("unknown priority %q", p)
	}
	return w.editDraft(sessionID, func(t *models.Task) error {
		t.Priority = p
		return nil
	})
}

// AddChecklistItem appends an unchecked item to the draft
func (w *Workspace) AddChecklistItem(sessionID, text string) (Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Draft{}, invalid("checklist item text must not be empty")
	}
	return w.editDraft(sessionID, func(t *models.Task) error {
		t.Checklist = append(t.Checklist, models.ChecklistItem{ID: w.newID(), Text: text})
		return nil
	})
}

// ToggleChecklistItem flips the done flag of a draft item
func (w *Workspace) ToggleChecklistItem(sessionID, itemID string) (Draft, error) {
	return w.editDraft(sessionID, func(t *models.Task) error {
		for i := range t.Checklist {
			if t.Checklist[i].ID == itemID {
				t.Checklist[i].Done = !t.Checklist[i].Done
				return nil
			}
		}
		return notFound("checklist item", itemID)
	})
}

// RemoveChecklistItem deletes an item from the draft
func (w *Workspace) RemoveChecklistItem(sessionID, itemID string) (Draft, error) {
	return w.editDraft(sessionID, func(t *models.Task) error {
		for i := range t.Checklist {
			if t.Checklist[i].ID == itemID {
				t.Checklist = append(t.Checklist[:i:i], t.Checklist[i+1:]...)
				return nil
			}
		}
		return notFound("checklist item", itemID)
	})
}

// CommitEdit writes the draft back to the board and closes the session.
// A draft whose content was cleared is rejected and the session stays open.
func (w *Workspace) CommitEdit(ctx context.Context, sessionID string) (models.Task, error) {
	w.mu.Lock()
	s, ok := w.edits[sessionID]
	if !ok {
		w.mu.Unlock()
		return models.Task{}, notFound("edit session", sessionID)
	}
	draft := s.draft.Clone()
	draft.Content = strings.TrimSpace(draft.Content)
	if draft.Content == "" {
		w.mu.Unlock()
		return models.Task{}, invalid("task content must not be empty")
	}
	i := w.taskIndexLocked(draft.ID)
	if i < 0 {
		delete(w.edits, sessionID)
		w.mu.Unlock()
		return models.Task{}, notFound("task", draft.ID)
	}
	// status may have moved on the board while the draft was open
	draft.Status = w.tasks[i].Status
	w.tasks[i] = draft
	delete(w.edits, sessionID)
	l := w.changed(ctx, store.KeyTasks)
	w.mu.Unlock()

	notify(l)
	return draft.Clone(), nil
}

// DiscardEdit closes a session without touching the board
func (w *Workspace) DiscardEdit(sessionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.edits[sessionID]; !ok {
		return notFound("edit session", sessionID)
	}
	delete(w.edits, sessionID)
	return nil
}

// AnalyzeBoard asks the assistant for a short report on the pending tasks
func (w *Workspace) AnalyzeBoard(ctx context.Context) ai.TextResult {
	tasks := w.Tasks()
	return w.assistant.AnalyzeTasks(ctx, tasks)
}

func cloneTasks(in []models.Task) []models.Task {
	out := make([]models.Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
