package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncSnapshot is the composite of all collections written to and read from the backup file
type SyncSnapshot struct {
	Projects    []Project        `json:"projects"`
	Entries     []TimesheetEntry `json:"entries"`
	Notes       []Note           `json:"notes"`
	Tasks       []Task           `json:"tasks"`
	LastUpdated string           `json:"lastUpdated"`
}

// PartialSnapshot is a snapshot read from an external source. A nil field means the
// key was absent and the corresponding local collection must be left alone.
type PartialSnapshot struct {
	Projects    *[]Project        `json:"projects,omitempty"`
	Entries     *[]TimesheetEntry `json:"entries,omitempty"`
	Notes       *[]Note           `json:"notes,omitempty"`
	Tasks       *[]Task           `json:"tasks,omitempty"`
	LastUpdated string            `json:"lastUpdated,omitempty"`
}

// NewSyncSnapshot builds a snapshot stamped with the given time
func NewSyncSnapshot(projects []Project, entries []TimesheetEntry, notes []Note, tasks []Task, now time.Time) SyncSnapshot {
	return SyncSnapshot{
		Projects:    projects,
		Entries:     entries,
		Notes:       notes,
		Tasks:       tasks,
		LastUpdated: now.UTC().Format(time.RFC3339Nano),
	}
}

// Partial converts a full snapshot into one where every key is present
func (s SyncSnapshot) Partial() PartialSnapshot {
	return PartialSnapshot{
		Projects:    &s.Projects,
		Entries:     &s.Entries,
		Notes:       &s.Notes,
		Tasks:       &s.Tasks,
		LastUpdated: s.LastUpdated,
	}
}

// Empty reports whether no collection key is present
func (p PartialSnapshot) Empty() bool {
	return p.Projects == nil && p.Entries == nil && p.Notes == nil && p.Tasks == nil
}

// DecodePartialSnapshot parses backup file content, keeping track of which keys were present.
// A key holding JSON null counts as absent.
func DecodePartialSnapshot(data []byte) (PartialSnapshot, error) {
	var snap PartialSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return PartialSnapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}
