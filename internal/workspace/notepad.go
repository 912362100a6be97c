package workspace

import (
	"context"
	"strings"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/services/ai"
	"github.com/benvon/workflow/internal/store"
)

// NotesView is the notepad screen: every note, newest first, and the open one
type NotesView struct {
	Notes        []models.Note `json:"notes"`
	ActiveNoteID string        `json:"activeNoteId"`
}

// Notes returns the note list and the active note
func (w *Workspace) Notes() NotesView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	notes := make([]models.Note, len(w.notes))
	copy(notes, w.notes)
	return NotesView{Notes: notes, ActiveNoteID: w.activeNote}
}

func (w *Workspace) noteIndexLocked(id string) int {
	for i, n := range w.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// CreateNote prepends an empty note and makes it the active one
func (w *Workspace) CreateNote(ctx context.Context) models.Note {
	w.mu.Lock()
	n := models.Note{
		ID:        w.newID(),
		Title:     models.DefaultNoteTitle,
		UpdatedAt: w.now().UTC(),
	}
	w.notes = append([]models.Note{n}, w.notes...)
	w.activeNote = n.ID
	l := w.changed(ctx, store.KeyNotes)
	w.mu.Unlock()

	notify(l)
	return n
}

// UpdateNote changes the given fields and refreshes the timestamp
func (w *Workspace) UpdateNote(ctx context.Context, id string, title, content *string) (models.Note, error) {
	w.mu.Lock()
	i := w.noteIndexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return models.Note{}, notFound("note", id)
	}
	if title != nil {
		w.notes[i].Title = *title
	}
	if content != nil {
		w.notes[i].Content = *content
	}
	w.notes[i].UpdatedAt = w.now().UTC()
	n := w.notes[i]
	l := w.changed(ctx, store.KeyNotes)
	w.mu.Unlock()

	notify(l)
	return n, nil
}

// DeleteNote removes a note. Deleting the active note opens the first remaining one.
func (w *Workspace) DeleteNote(ctx context.Context, id string) error {
	w.mu.Lock()
	i := w.noteIndexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return notFound("note", id)
	}
	w.notes = append(w.notes[:i:i], w.notes[i+1:]...)
	if w.activeNote == id {
		w.activeNote = ""
		if len(w.notes) > 0 {
			w.activeNote = w.notes[0].ID
		}
	}
	l := w.changed(ctx, store.KeyNotes)
	w.mu.Unlock()

	notify(l)
	return nil
}

// SelectNote makes a note the active one
func (w *Workspace) SelectNote(id string) (models.Note, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.noteIndexLocked(id)
	if i < 0 {
		return models.Note{}, notFound("note", id)
	}
	w.activeNote = id
	return w.notes[i], nil
}

func (w *Workspace) noteContent(id string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := w.noteIndexLocked(id)
	if i < 0 {
		return "", notFound("note", id)
	}
	return w.notes[i].Content, nil
}

// ImproveNote replaces the note content with the assistant's rewrite. A fallback
// result leaves the note untouched; empty content is a no-op.
func (w *Workspace) ImproveNote(ctx context.Context, id string) (models.Note, ai.TextResult, error) {
	content, err := w.noteContent(id)
	if err != nil {
		return models.Note{}, ai.TextResult{}, err
	}

	res := w.assistant.ImproveNote(ctx, content)
	if !res.OK() {
		w.mu.RLock()
		defer w.mu.RUnlock()
		if i := w.noteIndexLocked(id); i >= 0 {
			return w.notes[i], res, nil
		}
		return models.Note{}, res, notFound("note", id)
	}

	text := res.Text
	n, err := w.UpdateNote(ctx, id, nil, &text)
	return n, res, err
}

// ExtractTasks turns the action items the assistant finds in a note into todo tasks.
// When at least one task was created the kanban view becomes active.
func (w *Workspace) ExtractTasks(ctx context.Context, id string) ([]models.Task, ai.ListResult, error) {
	content, err := w.noteContent(id)
	if err != nil {
		return nil, ai.ListResult{}, err
	}

	res := w.assistant.SuggestTasks(ctx, content)
	created := []models.Task{}

	w.mu.Lock()
	for _, item := range res.Items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		t := w.newTaskLocked(item, models.PriorityMedium)
		w.tasks = append(w.tasks, t)
		created = append(created, t.Clone())
	}
	if len(created) == 0 {
		w.mu.Unlock()
		return created, res, nil
	}
	w.view = models.ViewKanban
	l := w.changed(ctx, store.KeyTasks)
	w.mu.Unlock()

	notify(l)
	return created, res, nil
}
