package handlers

import (
	"net/http"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/workspace"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NoteHandler serves the notepad and its AI assist actions
type NoteHandler struct {
	ws     *workspace.Workspace
	logger *zap.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(ws *workspace.Workspace, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{ws: ws, logger: logger}
}

// RegisterRoutes registers note routes on the /api/v1 router
func (h *NoteHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/notes", h.ListNotes).Methods("GET")
	r.HandleFunc("/notes", h.CreateNote).Methods("POST")
	r.HandleFunc("/notes/{id}", h.UpdateNote).Methods("PATCH")
	r.HandleFunc("/notes/{id}", h.DeleteNote).Methods("DELETE")
	r.HandleFunc("/notes/{id}/select", h.SelectNote).Methods("POST")
	r.HandleFunc("/notes/{id}/improve", h.ImproveNote).Methods("POST")
	r.HandleFunc("/notes/{id}/extract-tasks", h.ExtractTasks).Methods("POST")
}

// UpdateNoteRequest changes a note; absent fields are left alone. The text is
// stored as typed, whitespace included.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Content *string `json:"content,omitempty" validate:"omitempty,max=100000"`
}

// ImproveNoteResponse is the note after the rewrite attempt
type ImproveNoteResponse struct {
	Note    models.Note `json:"note"`
	Outcome string      `json:"outcome"`
}

// ExtractTasksResponse lists the tasks created from a note
type ExtractTasksResponse struct {
	Tasks   []models.Task `json:"tasks"`
	Outcome string        `json:"outcome"`
	View    models.View   `json:"view"`
}

// ListNotes returns every note and the active one
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ws.Notes())
}

// CreateNote adds an empty note and opens it
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, h.ws.CreateNote(r.Context()))
}

// UpdateNote edits the title or content of a note
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.ws.UpdateNote(r.Context(), mux.Vars(r)["id"], req.Title, req.Content)
	if err != nil {
		respondError(w, r, h.logger, err, "update note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// DeleteNote removes a note
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DeleteNote(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, h.logger, err, "delete note")
		return
	}
	respondJSON(w, http.StatusOK, h.ws.Notes())
}

// SelectNote opens a note
func (h *NoteHandler) SelectNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.ws.SelectNote(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err, "select note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// ImproveNote rewrites the note content with the assistant. When the assistant
// is unavailable the note comes back unchanged with outcome "fallback".
func (h *NoteHandler) ImproveNote(w http.ResponseWriter, r *http.Request) {
	note, res, err := h.ws.ImproveNote(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err, "improve note")
		return
	}
	respondJSON(w, http.StatusOK, ImproveNoteResponse{Note: note, Outcome: string(res.Outcome)})
}

// ExtractTasks creates todo tasks from the action items found in a note
func (h *NoteHandler) ExtractTasks(w http.ResponseWriter, r *http.Request) {
	tasks, res, err := h.ws.ExtractTasks(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err, "extract tasks")
		return
	}
	respondJSON(w, http.StatusOK, ExtractTasksResponse{Tasks: tasks, Outcome: string(res.Outcome), View: h.ws.View()})
}
