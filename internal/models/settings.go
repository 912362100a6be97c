package models

import "strings"

// DriveCredentials are the user supplied cloud drive API credentials
type DriveCredentials struct {
	APIKey   string `json:"apiKey"`
	ClientID string `json:"clientId"`
}

// Complete reports whether both credentials are set
func (c DriveCredentials) Complete() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.ClientID) != ""
}

// View is one of the application's top-level screens
type View string

const (
	ViewTimesheet View = "timesheet"
	ViewKanban    View = "kanban"
	ViewNotepad   View = "notepad"
	ViewSettings  View = "settings"
)

// Valid reports whether v is a known view
func (v View) Valid() bool {
	switch v {
	case ViewTimesheet, ViewKanban, ViewNotepad, ViewSettings:
		return true
	default:
		return false
	}
}
