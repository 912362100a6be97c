package models

import (
	"math"
	"strconv"
	"strings"
)

const (
	// WorkDays is the number of days shown in the weekly timesheet (Monday to Friday)
	WorkDays = 5
	// MaxDailyHours is the upper clamp for a single cell
	MaxDailyHours = 24.0
	// DailyTargetHours is the expected amount of work per day
	DailyTargetHours = 8.0
)

// DayLabels are the short names of the work days, indexed by day
var DayLabels = [WorkDays]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// DailyHours maps a day index (0 = Monday) to booked hours
type DailyHours map[int]float64

// TimesheetEntry holds the hours booked on one project for the current week
type TimesheetEntry struct {
	ProjectID string     `json:"projectId"`
	Hours     DailyHours `json:"hours"`
}

// NewTimesheetEntry returns a zero-filled entry for a project
func NewTimesheetEntry(projectID string) TimesheetEntry {
	hours := make(DailyHours, WorkDays)
	for day := 0; day < WorkDays; day++ {
		hours[day] = 0
	}
	return TimesheetEntry{ProjectID: projectID, Hours: hours}
}

// Clone returns a deep copy of the entry
func (e TimesheetEntry) Clone() TimesheetEntry {
	hours := make(DailyHours, len(e.Hours))
	for day, h := range e.Hours {
		hours[day] = h
	}
	return TimesheetEntry{ProjectID: e.ProjectID, Hours: hours}
}

// Normalize returns the entry with exactly the five work days, each clamped to
// [0, MaxDailyHours]. The flag reports whether anything had to be fixed.
func (e TimesheetEntry) Normalize() (TimesheetEntry, bool) {
	fixed := len(e.Hours) != WorkDays
	hours := make(DailyHours, WorkDays)
	for day := 0; day < WorkDays; day++ {
		v, ok := e.Hours[day]
		clamped := ClampHours(v)
		if !ok || clamped != v {
			fixed = true
		}
		hours[day] = clamped
	}
	return TimesheetEntry{ProjectID: e.ProjectID, Hours: hours}, fixed
}

// Total returns the sum of hours over the week
func (e TimesheetEntry) Total() float64 {
	var total float64
	for day := 0; day < WorkDays; day++ {
		total += e.Hours[day]
	}
	return total
}

// ValidDay reports whether day is a timesheet column
func ValidDay(day int) bool {
	return day >= 0 && day < WorkDays
}

// ClampHours bounds a value to [0, MaxDailyHours]. NaN becomes 0.
func ClampHours(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > MaxDailyHours {
		return MaxDailyHours
	}
	return v
}

// ParseHours converts raw cell input into clamped hours; anything that is not a number is 0
func ParseHours(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return ClampHours(v)
}

// TotalClass classifies a daily total against the 8 hour target
type TotalClass string

const (
	TotalEmpty TotalClass = "empty"
	TotalUnder TotalClass = "under"
	TotalExact TotalClass = "exact"
	TotalOver  TotalClass = "over"
)

// ClassifyDailyTotal returns the display class for a daily total
func ClassifyDailyTotal(total float64) TotalClass {
	switch {
	case total <= 0:
		return TotalEmpty
	case total < DailyTargetHours:
		return TotalUnder
	case total == DailyTargetHours:
		return TotalExact
	default:
		return TotalOver
	}
}

// DayTotal is the aggregated hours for one day across all projects
type DayTotal struct {
	Day   int        `json:"day"`
	Label string     `json:"label"`
	Hours float64    `json:"hours"`
	Class TotalClass `json:"class"`
}

// ProjectTotal is the weekly sum for one project, used by the summary chart
type ProjectTotal struct {
	ProjectID string  `json:"projectId"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Hours     float64 `json:"hours"`
}
