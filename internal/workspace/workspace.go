// Package workspace owns the in-memory application state: projects, timesheet
// entries, notes, tasks and settings. Every committed change is persisted to the
// local store and reported to the change listener that drives auto-save.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/notice"
	"github.com/benvon/workflow/internal/services/ai"
	"github.com/benvon/workflow/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is wrapped by every lookup failure
	ErrNotFound = errors.New("not found")
	// ErrInvalid is wrapped by every input validation failure
	ErrInvalid = errors.New("invalid input")
)

// Persister writes a whole collection under one key
type Persister interface {
	Persist(ctx context.Context, key string, value any) error
}

// ChangeListener is told about every committed change of a synced collection
// or of the auto-save flag
type ChangeListener interface {
	Notify()
}

// Assistant is the AI surface the editors use
type Assistant interface {
	ImproveNote(ctx context.Context, text string) ai.TextResult
	SuggestTasks(ctx context.Context, text string) ai.ListResult
	AnalyzeTasks(ctx context.Context, tasks []models.Task) ai.TextResult
}

// DriveConfigurer receives new drive credentials
type DriveConfigurer interface {
	Configure(ctx context.Context, creds models.DriveCredentials)
}

// Options configures a Workspace. Only Store is required.
type Options struct {
	Store     Persister
	Assistant Assistant
	Notices   *notice.Board
	Drive     DriveConfigurer
	Logger    *zap.Logger
	// Now and NewID are replaceable for tests
	Now   func() time.Time
	NewID func() string
}

// Workspace is the single owner of the application state
type Workspace struct {
	mu sync.RWMutex

	projects   []models.Project
	entries    []models.TimesheetEntry
	notes      []models.Note
	tasks      []models.Task
	autoSave   bool
	drive      models.DriveCredentials
	view       models.View
	activeNote string
	edits      map[string]*editSession
	// entriesRepaired marks loaded entries that were fixed but not yet persisted
	entriesRepaired bool

	store     Persister
	listener  ChangeListener
	assistant Assistant
	notices   *notice.Board
	driveCfg  DriveConfigurer
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// New builds a workspace from loaded state
func New(state store.State, opts Options) *Workspace {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notices == nil {
		opts.Notices = notice.NewBoard(notice.DefaultTTL)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Assistant == nil {
		opts.Assistant = ai.NewAssistant(nil, opts.Logger)
	}

	w := &Workspace{
		projects:  nonNil(state.Projects),
		entries:   nonNil(state.Entries),
		notes:     nonNil(state.Notes),
		tasks:     nonNil(state.Tasks),
		autoSave:  state.AutoSave,
		drive:     state.Drive,
		view:      models.ViewTimesheet,
		edits:     make(map[string]*editSession),
		store:     opts.Store,
		assistant: opts.Assistant,
		notices:   opts.Notices,
		driveCfg:  opts.Drive,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	for i := range w.tasks {
		w.tasks[i] = normalizeTask(w.tasks[i])
	}
	// missing entries are added by Reconcile, which also persists the repair
	if entries, changed := reconcileEntries(w.projects, w.entries, false); changed {
		w.entries = entries
		w.entriesRepaired = true
	}
	if len(w.notes) > 0 {
		w.activeNote = w.notes[0].ID
	}
	return w
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// normalizeTask repairs values coming from older or hand-edited files
func normalizeTask(t models.Task) models.Task {
	status, ok := models.NormalizeTaskStatus(string(t.Status))
	if !ok {
		status = models.TaskStatusTodo
	}
	t.Status = status
	if !t.Priority.Valid() {
		t.Priority = models.PriorityMedium
	}
	if t.Checklist == nil {
		t.Checklist = []models.ChecklistItem{}
	}
	return t
}

// SetListener installs the change listener. It is set after construction
// because the sync orchestrator itself reads snapshots from the workspace.
func (w *Workspace) SetListener(l ChangeListener) {
	w.mu.Lock()
	w.listener = l
	w.mu.Unlock()
}

// Notices returns the notice board
func (w *Workspace) Notices() *notice.Board {
	return w.notices
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// persistLocked writes the given collections; w.mu must be held. Failures are
// logged and shown as a warning; the in-memory state stays authoritative.
func (w *Workspace) persistLocked(ctx context.Context, keys ...string) {
	if w.store == nil {
		return
	}
	for _, key := range keys {
		var value any
		switch key {
		case store.KeyProjects:
			value = w.projects
		case store.KeyEntries:
			value = w.entries
		case store.KeyNotes:
			value = w.notes
		case store.KeyTasks:
			value = w.tasks
		case store.KeyAutoSave:
			value = w.autoSave
		case store.KeyDriveConfig:
			value = w.drive
		default:
			continue
		}
		if err := w.store.Persist(ctx, key, value); err != nil {
			w.logger.Error("local_persist_failed", zap.String("key", key), zap.Error(err))
			w.notices.Post(notice.KindWarning, "Changes could not be saved on this device.")
		}
	}
}

// changed persists the keys and returns the listener to notify once the lock is released
func (w *Workspace) changed(ctx context.Context, keys ...string) ChangeListener {
	w.persistLocked(ctx, keys...)
	return w.listener
}

func notify(l ChangeListener) {
	if l != nil {
		l.Notify()
	}
}
