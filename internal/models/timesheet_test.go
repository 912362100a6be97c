package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestParseHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want float64
	}{
		{"-5", 0},
		{"abc", 0},
		{"30", 24},
		{"7.5", 7.5},
		{" 8 ", 8},
		{"", 0},
		{"24", 24},
		{"NaN", 0},
		{"Inf", 24},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			if got := ParseHours(tt.raw); got != tt.want {
				t.Errorf("ParseHours(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestClampHours(t *testing.T) {
	t.Parallel()

	if got := ClampHours(math.NaN()); got != 0 {
		t.Errorf("Expected NaN to clamp to 0, got %v", got)
	}
	if got := ClampHours(-0.1); got != 0 {
		t.Errorf("Expected negative to clamp to 0, got %v", got)
	}
	if got := ClampHours(25); got != MaxDailyHours {
		t.Errorf("Expected 25 to clamp to %v, got %v", MaxDailyHours, got)
	}
}

func TestClassifyDailyTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total float64
		want  TotalClass
	}{
		{0, TotalEmpty},
		{0.5, TotalUnder},
		{7.99, TotalUnder},
		{8, TotalExact},
		{8.25, TotalOver},
	}
	for _, tt := range tests {
		if got := ClassifyDailyTotal(tt.total); got != tt.want {
			t.Errorf("ClassifyDailyTotal(%v) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestTimesheetEntry_JSONCompatibility(t *testing.T) {
	t.Parallel()

	data := []byte(`{"projectId":"p1","hours":{"0":8,"1":4.5,"2":0,"3":0,"4":2}}`)
	var entry TimesheetEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("Failed to unmarshal entry: %v", err)
	}
	if entry.ProjectID != "p1" {
		t.Errorf("Expected projectId p1, got %s", entry.ProjectID)
	}
	if entry.Hours[1] != 4.5 {
		t.Errorf("Expected Tuesday 4.5, got %v", entry.Hours[1])
	}
	if got := entry.Total(); got != 14.5 {
		t.Errorf("Expected total 14.5, got %v", got)
	}

	clone := entry.Clone()
	clone.Hours[0] = 1
	if entry.Hours[0] != 8 {
		t.Error("Expected clone to be independent of the original")
	}
}

func TestNewTimesheetEntry(t *testing.T) {
	t.Parallel()

	entry := NewTimesheetEntry("p9")
	if len(entry.Hours) != WorkDays {
		t.Fatalf("Expected %d days, got %d", WorkDays, len(entry.Hours))
	}
	for day := 0; day < WorkDays; day++ {
		if h, ok := entry.Hours[day]; !ok || h != 0 {
			t.Errorf("Expected day %d to be 0, got %v (present=%v)", day, h, ok)
		}
	}
}

func TestDecodePartialSnapshot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		data         string
		wantErr      bool
		wantProjects bool
		wantTasks    bool
	}{
		{name: "only tasks", data: `{"tasks":[]}`, wantTasks: true},
		{name: "projects and tasks", data: `{"projects":[{"id":"1","name":"A","color":"#fff"}],"tasks":[]}`, wantProjects: true, wantTasks: true},
		{name: "null counts as absent", data: `{"projects":null}`},
		{name: "malformed", data: `{"projects":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snap, err := DecodePartialSnapshot([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodePartialSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (snap.Projects != nil) != tt.wantProjects {
				t.Errorf("Projects present = %v, want %v", snap.Projects != nil, tt.wantProjects)
			}
			if (snap.Tasks != nil) != tt.wantTasks {
				t.Errorf("Tasks present = %v, want %v", snap.Tasks != nil, tt.wantTasks)
			}
			if snap.Entries != nil || snap.Notes != nil {
				t.Error("Expected entries and notes to be absent")
			}
		})
	}
}

func TestNewSyncSnapshot_LastUpdated(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	snap := NewSyncSnapshot(nil, nil, nil, nil, now)
	if snap.LastUpdated != "2024-03-15T10:00:00Z" {
		t.Errorf("Expected ISO-8601 timestamp, got %s", snap.LastUpdated)
	}
	if snap.Partial().Empty() {
		t.Error("Expected a converted full snapshot to have every key present")
	}
}

func TestTimesheetEntry_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		hours     DailyHours
		want      DailyHours
		wantFixed bool
	}{
		{"already valid", DailyHours{0: 1, 1: 2, 2: 0, 3: 8, 4: 24}, DailyHours{0: 1, 1: 2, 2: 0, 3: 8, 4: 24}, false},
		{"out of range", DailyHours{0: 30, 1: -5, 2: math.NaN(), 3: 0, 4: 0}, DailyHours{0: 24, 1: 0, 2: 0, 3: 0, 4: 0}, true},
		{"missing days", DailyHours{2: 3}, DailyHours{0: 0, 1: 0, 2: 3, 3: 0, 4: 0}, true},
		{"extra day", DailyHours{0: 0, 1: 0, 2: 0, 3: 0, 4: 0, 5: 7}, DailyHours{0: 0, 1: 0, 2: 0, 3: 0, 4: 0}, true},
		{"nil", nil, DailyHours{0: 0, 1: 0, 2: 0, 3: 0, 4: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, fixed := TimesheetEntry{ProjectID: "p", Hours: tt.hours}.Normalize()
			if fixed != tt.wantFixed {
				t.Errorf("Normalize() fixed = %v, want %v", fixed, tt.wantFixed)
			}
			if got.ProjectID != "p" || len(got.Hours) != len(tt.want) {
				t.Fatalf("Normalize() = %+v", got)
			}
			for day, h := range tt.want {
				if got.Hours[day] != h {
					t.Errorf("day %d = %v, want %v", day, got.Hours[day], h)
				}
			}
		})
	}
}
