package workspace

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/store"
)

// TimesheetView is everything the weekly timesheet screen shows
type TimesheetView struct {
	Projects      []models.Project        `json:"projects"`
	Entries       []models.TimesheetEntry `json:"entries"`
	DailyTotals   []models.DayTotal       `json:"dailyTotals"`
	ProjectTotals []models.ProjectTotal   `json:"projectTotals"`
	TargetHours   float64                 `json:"targetHours"`
}

// Timesheet reconciles the entries and returns the current week
func (w *Workspace) Timesheet(ctx context.Context) TimesheetView {
	w.mu.Lock()
	l := w.reconcileLocked(ctx)
	view := TimesheetView{
		Projects:      cloneProjects(w.projects),
		Entries:       cloneEntries(w.entries),
		DailyTotals:   w.dailyTotalsLocked(),
		ProjectTotals: w.projectTotalsLocked(),
		TargetHours:   models.DailyTargetHours,
	}
	w.mu.Unlock()
	notify(l)
	return view
}

// Projects returns a copy of the project list
func (w *Workspace) Projects() []models.Project {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneProjects(w.projects)
}

// Reconcile gives every project exactly one zero-filled entry. Duplicate
// entries, entries of unknown projects and out-of-range hours are repaired.
// It reports whether anything changed; nothing is persisted otherwise.
func (w *Workspace) Reconcile(ctx context.Context) bool {
	w.mu.Lock()
	l := w.reconcileLocked(ctx)
	w.mu.Unlock()
	notify(l)
	return l != nil
}

// reconcileLocked returns a non-nil listener only when entries changed. A
// workspace without listener uses a no-op one so the return value keeps its meaning.
func (w *Workspace) reconcileLocked(ctx context.Context) ChangeListener {
	entries, changed := reconcileEntries(w.projects, w.entries, true)
	if !changed && !w.entriesRepaired {
		return nil
	}
	w.entries = entries
	w.entriesRepaired = false
	if l := w.changed(ctx, store.KeyEntries); l != nil {
		return l
	}
	return noopListener{}
}

// reconcileEntries keeps the first entry of every known project with its hours
// normalized. With fill set, projects without an entry get a zero-filled one.
func reconcileEntries(projects []models.Project, entries []models.TimesheetEntry, fill bool) ([]models.TimesheetEntry, bool) {
	known := make(map[string]bool, len(projects))
	for _, p := range projects {
		known[p.ID] = true
	}
	seen := make(map[string]bool, len(entries))
	out := make([]models.TimesheetEntry, 0, len(projects))
	changed := false
	for _, e := range entries {
		if !known[e.ProjectID] || seen[e.ProjectID] {
			changed = true
			continue
		}
		seen[e.ProjectID] = true
		n, fixed := e.Normalize()
		changed = changed || fixed
		out = append(out, n)
	}
	if fill {
		for _, p := range projects {
			if !seen[p.ID] {
				out = append(out, models.NewTimesheetEntry(p.ID))
				seen[p.ID] = true
				changed = true
			}
		}
	}
	return out, changed
}

type noopListener struct{}

func (noopListener) Notify() {}

// randomColor returns a saturated color with a random hue
func randomColor() string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", rand.IntN(360))
}

// AddProject appends a project with a random color and gives it an empty row
func (w *Workspace) AddProject(ctx context.Context, name string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, invalid("project name must not be empty")
	}

	w.mu.Lock()
	p := models.Project{ID: w.newID(), Name: name, Color: randomColor()}
	w.projects = append(w.projects, p)
	w.entries = append(w.entries, models.NewTimesheetEntry(p.ID))
	l := w.changed(ctx, store.KeyProjects, store.KeyEntries)
	w.mu.Unlock()

	notify(l)
	return p, nil
}

// RemoveProject deletes a project together with its timesheet entries
func (w *Workspace) RemoveProject(ctx context.Context, id string) error {
	w.mu.Lock()
	idx := -1
	for i, p := range w.projects {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return notFound("project", id)
	}
	w.projects = append(w.projects[:idx:idx], w.projects[idx+1:]...)

	kept := w.entries[:0:0]
	for _, e := range w.entries {
		if e.ProjectID != id {
			kept = append(kept, e)
		}
	}
	w.entries = kept
	l := w.changed(ctx, store.KeyProjects, store.KeyEntries)
	w.mu.Unlock()

	notify(l)
	return nil
}

// ClearProjects removes every project and entry
func (w *Workspace) ClearProjects(ctx context.Context) {
	w.mu.Lock()
	w.projects = []models.Project{}
	w.entries = []models.TimesheetEntry{}
	l := w.changed(ctx, store.KeyProjects, store.KeyEntries)
	w.mu.Unlock()
	notify(l)
}

// SetHours parses raw cell input and stores the clamped value.
// Non-numeric input is stored as 0.
func (w *Workspace) SetHours(ctx context.Context, projectID string, day int, raw string) (models.TimesheetEntry, error) {
	if !models.ValidDay(day) {
		return models.TimesheetEntry{}, invalid("day must be between 0 and %d", models.WorkDays-1)
	}
	hours := models.ParseHours(raw)

	w.mu.Lock()
	if !w.hasProjectLocked(projectID) {
		w.mu.Unlock()
		return models.TimesheetEntry{}, notFound("project", projectID)
	}
	w.reconcileLocked(ctx)

	var updated models.TimesheetEntry
	for i := range w.entries {
		if w.entries[i].ProjectID == projectID {
			w.entries[i].Hours[day] = hours
			updated = w.entries[i].Clone()
			break
		}
	}
	l := w.changed(ctx, store.KeyEntries)
	w.mu.Unlock()

	notify(l)
	return updated, nil
}

func (w *Workspace) hasProjectLocked(id string) bool {
	for _, p := range w.projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

// DailyTotals sums every day over all entries and classifies it against the 8 hour target
func (w *Workspace) DailyTotals() []models.DayTotal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dailyTotalsLocked()
}

func (w *Workspace) dailyTotalsLocked() []models.DayTotal {
	totals := make([]models.DayTotal, models.WorkDays)
	for day := 0; day < models.WorkDays; day++ {
		var sum float64
		for _, e := range w.entries {
			sum += e.Hours[day]
		}
		totals[day] = models.DayTotal{
			Day:   day,
			Label: models.DayLabels[day],
			Hours: sum,
			Class: models.ClassifyDailyTotal(sum),
		}
	}
	return totals
}

// ProjectTotals returns the weekly hours of every project that has any
func (w *Workspace) ProjectTotals() []models.ProjectTotal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.projectTotalsLocked()
}

func (w *Workspace) projectTotalsLocked() []models.ProjectTotal {
	byProject := make(map[string]float64, len(w.entries))
	for _, e := range w.entries {
		byProject[e.ProjectID] += e.Total()
	}
	totals := []models.ProjectTotal{}
	for _, p := range w.projects {
		if h := byProject[p.ID]; h > 0 {
			totals = append(totals, models.ProjectTotal{ProjectID: p.ID, Name: p.Name, Color: p.Color, Hours: h})
		}
	}
	return totals
}

func cloneProjects(in []models.Project) []models.Project {
	out := make([]models.Project, len(in))
	copy(out, in)
	return out
}

func cloneEntries(in []models.TimesheetEntry) []models.TimesheetEntry {
	out := make([]models.TimesheetEntry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
