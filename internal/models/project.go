package models

// Project represents a bucket that timesheet hours are booked against
type Project struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DefaultProjects returns the starter projects used when nothing has been stored yet
func DefaultProjects() []Project {
	return []Project{
		{ID: "1", Name: "Development", Color: "#4f46e5"},
		{ID: "2", Name: "Training", Color: "#0ea5e9"},
		{ID: "3", Name: "Meetings", Color: "#8b5cf6"},
	}
}
