package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/store"
)

// Settings is the user-editable configuration
type Settings struct {
	AutoSave bool                    `json:"autoSave"`
	Drive    models.DriveCredentials `json:"drive"`
	View     models.View             `json:"view"`
}

// Settings returns the current settings
func (w *Workspace) Settings() Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Settings{AutoSave: w.autoSave, Drive: w.drive, View: w.view}
}

// AutoSave reports whether changes are pushed to the remote automatically
func (w *Workspace) AutoSave() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.autoSave
}

// SetAutoSave stores the flag. Turning it on counts as a change so pending
// edits reach the remote after the debounce window.
func (w *Workspace) SetAutoSave(ctx context.Context, enabled bool) {
	w.mu.Lock()
	if w.autoSave == enabled {
		w.mu.Unlock()
		return
	}
	w.autoSave = enabled
	l := w.changed(ctx, store.KeyAutoSave)
	w.mu.Unlock()
	notify(l)
}

// SetDriveCredentials stores new drive credentials and reconfigures the drive adapter
func (w *Workspace) SetDriveCredentials(ctx context.Context, creds models.DriveCredentials) models.DriveCredentials {
	creds.APIKey = strings.TrimSpace(creds.APIKey)
	creds.ClientID = strings.TrimSpace(creds.ClientID)

	w.mu.Lock()
	w.drive = creds
	w.persistLocked(ctx, store.KeyDriveConfig)
	cfg := w.driveCfg
	w.mu.Unlock()

	if cfg != nil {
		cfg.Configure(ctx, creds)
	}
	return creds
}

// View returns the active screen
func (w *Workspace) View() models.View {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.view
}

// SetView switches the active screen
func (w *Workspace) SetView(v models.View) error {
	if !v.Valid() {
		return invalid("unknown view %q", v)
	}
	w.mu.Lock()
	w.view = v
	w.mu.Unlock()
	return nil
}

// Snapshot captures the four synced collections stamped with now
func (w *Workspace) Snapshot(now time.Time) models.SyncSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	notes := make([]models.Note, len(w.notes))
	copy(notes, w.notes)
	return models.NewSyncSnapshot(
		cloneProjects(w.projects),
		cloneEntries(w.entries),
		notes,
		cloneTasks(w.tasks),
		now,
	)
}

// Apply replaces every collection present in snap and persists it locally. Absent
// keys leave the local collection untouched. Loaded timesheet entries are
// reconciled against the projects before they are stored. Applying a loaded file is not a local
// edit, so the change listener is not notified.
func (w *Workspace) Apply(ctx context.Context, snap models.PartialSnapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var keys []string
	if snap.Projects != nil {
		w.projects = nonNil(cloneProjects(*snap.Projects))
		keys = append(keys, store.KeyProjects)
	}
	if snap.Entries != nil {
		w.entries = nonNil(cloneEntries(*snap.Entries))
		keys = append(keys, store.KeyEntries)
	}
	if snap.Projects != nil || snap.Entries != nil {
		if entries, changed := reconcileEntries(w.projects, w.entries, true); changed {
			w.entries = entries
			if snap.Entries == nil {
				keys = append(keys, store.KeyEntries)
			}
		}
		w.entriesRepaired = false
	}
	if snap.Notes != nil {
		notes := make([]models.Note, len(*snap.Notes))
		copy(notes, *snap.Notes)
		w.notes = notes
		keys = append(keys, store.KeyNotes)
		if w.noteIndexLocked(w.activeNote) < 0 {
			w.activeNote = ""
			if len(w.notes) > 0 {
				w.activeNote = w.notes[0].ID
			}
		}
	}
	if snap.Tasks != nil {
		tasks := cloneTasks(*snap.Tasks)
		for i := range tasks {
			tasks[i] = normalizeTask(tasks[i])
		}
		w.tasks = tasks
		keys = append(keys, store.KeyTasks)
		w.edits = make(map[string]*editSession)
	}
	w.persistLocked(ctx, keys...)
}

// BackupFileName returns the name of a local export made on the given day
func BackupFileName(now time.Time) string {
	return fmt.Sprintf("workflow-backup-%s.json", now.Format("2006-01-02"))
}

// ExportBackup renders the full snapshot as indented JSON
func (w *Workspace) ExportBackup(now time.Time) (string, []byte, error) {
	data, err := json.MarshalIndent(w.Snapshot(now), "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return BackupFileName(now), data, nil
}
