package handlers

import (
	"net/http"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/validation"
	"github.com/benvon/workflow/internal/workspace"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskHandler serves the kanban board and task edit sessions
type TaskHandler struct {
	ws     *workspace.Workspace
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(ws *workspace.Workspace, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{ws: ws, logger: logger}
}

// RegisterRoutes registers task and edit session routes on the /api/v1 router
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tasks", h.ListTasks).Methods("GET")
	r.HandleFunc("/tasks", h.CreateTask).Methods("POST")
	r.HandleFunc("/tasks/analysis", h.AnalyzeBoard).Methods("POST")
	r.HandleFunc("/tasks/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/tasks/{id}/move", h.MoveTask).Methods("POST")
	r.HandleFunc("/tasks/{id}/edit", h.BeginEdit).Methods("POST")

	r.HandleFunc("/edits/{sid}", h.GetDraft).Methods("GET")
	r.HandleFunc("/edits/{sid}", h.UpdateDraft).Methods("PATCH")
	r.HandleFunc("/edits/{sid}", h.DiscardEdit).Methods("DELETE")
	r.HandleFunc("/edits/{sid}/checklist", h.AddChecklistItem).Methods("POST")
	r.HandleFunc("/edits/{sid}/checklist/{itemId}/toggle", h.ToggleChecklistItem).Methods("POST")
	r.HandleFunc("/edits/{sid}/checklist/{itemId}", h.RemoveChecklistItem).Methods("DELETE")
	r.HandleFunc("/edits/{sid}/commit", h.CommitEdit).Methods("POST")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Content  string `json:"content" validate:"required,max=2000"`
	Priority string `json:"priority" validate:"task_priority"`
}

// MoveTaskRequest represents a move task request
type MoveTaskRequest struct {
	Direction string `json:"direction" validate:"required,direction"`
}

// UpdateDraftRequest changes the draft; absent fields are left alone
type UpdateDraftRequest struct {
	Content  *string `json:"content,omitempty" validate:"omitempty,max=2000"`
	Priority *string `json:"priority,omitempty" validate:"omitempty,task_priority"`
}

// ChecklistItemRequest represents an add checklist item request
type ChecklistItemRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// ListTasksResponse is the board, optionally filtered to one column
type ListTasksResponse struct {
	Tasks  []models.Task             `json:"tasks"`
	Counts map[models.TaskStatus]int `json:"counts"`
}

// AnalysisResponse is the AI board report
type AnalysisResponse struct {
	Text    string `json:"text"`
	Outcome string `json:"outcome"`
}

// ListTasks returns the tasks, filtered by ?status= when given
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" {
		if err := validation.Validate.Var(status, "task_status"); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "status must be 'todo', 'doing' or 'done'")
			return
		}
	}

	tasks := h.ws.Tasks()
	resp := ListTasksResponse{Tasks: make([]models.Task, 0, len(tasks)), Counts: map[models.TaskStatus]int{}}
	for _, s := range models.TaskStatuses() {
		resp.Counts[s] = 0
	}
	for _, t := range tasks {
		resp.Counts[t.Status]++
		if status == "" || t.Status == models.TaskStatus(status) {
			resp.Tasks = append(resp.Tasks, t)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateTask adds a task to the todo column
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	content := validation.SanitizeText(req.Content)
	if content == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content is required and cannot be empty after sanitization")
		return
	}

	task, err := h.ws.CreateTask(r.Context(), content, models.Priority(req.Priority))
	if err != nil {
		respondError(w, r, h.logger, err, "create task")
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DeleteTask(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, h.logger, err, "delete task")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

// MoveTask moves a task one column left or right
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	var req MoveTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.ws.MoveTask(r.Context(), mux.Vars(r)["id"], models.Direction(req.Direction))
	if err != nil {
		respondError(w, r, h.logger, err, "move task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// AnalyzeBoard asks the assistant for a report on the pending tasks
func (h *TaskHandler) AnalyzeBoard(w http.ResponseWriter, r *http.Request) {
	res := h.ws.AnalyzeBoard(r.Context())
	respondJSON(w, http.StatusOK, AnalysisResponse{Text: res.Text, Outcome: string(res.Outcome)})
}

// BeginEdit opens an edit session on a task
func (h *TaskHandler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	draft, err := h.ws.BeginEdit(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err, "start editing")
		return
	}
	respondJSON(w, http.StatusCreated, draft)
}

// GetDraft returns the draft of an edit session
func (h *TaskHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.ws.Draft(mux.Vars(r)["sid"])
	if err != nil {
		respondError(w, r, h.logger, err, "load draft")
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

// UpdateDraft changes the content or priority of a draft
func (h *TaskHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req UpdateDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sid := mux.Vars(r)["sid"]

	draft, err := h.ws.Draft(sid)
	if req.Content != nil && err == nil {
		// blank content is allowed while editing; CommitEdit rejects it
		draft, err = h.ws.SetDraftContent(sid, validation.SanitizeText(*req.Content))
	}
	if req.Priority != nil && *req.Priority != "" && err == nil {
		draft, err = h.ws.SetDraftPriority(sid, models.Priority(*req.Priority))
	}
	if err != nil {
		respondError(w, r, h.logger, err, "update draft")
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

// AddChecklistItem appends an item to the draft's checklist
func (h *TaskHandler) AddChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req ChecklistItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.ws.AddChecklistItem(mux.Vars(r)["sid"], validation.SanitizeText(req.Text))
	if err != nil {
		respondError(w, r, h.logger, err, "add checklist item")
		return
	}
	respondJSON(w, http.StatusCreated, draft)
}

// ToggleChecklistItem flips the done flag of a draft checklist item
func (h *TaskHandler) ToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	draft, err := h.ws.ToggleChecklistItem(vars["sid"], vars["itemId"])
	if err != nil {
		respondError(w, r, h.logger, err, "toggle checklist item")
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

// RemoveChecklistItem drops an item from the draft's checklist
func (h *TaskHandler) RemoveChecklistItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	draft, err := h.ws.RemoveChecklistItem(vars["sid"], vars["itemId"])
	if err != nil {
		respondError(w, r, h.logger, err, "remove checklist item")
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

// CommitEdit writes the draft back to the board and closes the session
func (h *TaskHandler) CommitEdit(w http.ResponseWriter, r *http.Request) {
	task, err := h.ws.CommitEdit(r.Context(), mux.Vars(r)["sid"])
	if err != nil {
		respondError(w, r, h.logger, err, "save task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// DiscardEdit abandons an edit session
func (h *TaskHandler) DiscardEdit(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DiscardEdit(mux.Vars(r)["sid"]); err != nil {
		respondError(w, r, h.logger, err, "discard draft")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Draft discarded"})
}
