package models

import "time"

// DefaultNoteTitle is the title given to freshly created notes
const DefaultNoteTitle = "New note"

// Note represents a free-form notepad page
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}
