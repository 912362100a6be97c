package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/validation"
	"github.com/benvon/workflow/internal/workspace"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TimesheetHandler serves the weekly timesheet and the project list
type TimesheetHandler struct {
	ws     *workspace.Workspace
	logger *zap.Logger
}

// NewTimesheetHandler creates a new timesheet handler
func NewTimesheetHandler(ws *workspace.Workspace, logger *zap.Logger) *TimesheetHandler {
	return &TimesheetHandler{ws: ws, logger: logger}
}

// RegisterRoutes registers timesheet and project routes on the /api/v1 router
func (h *TimesheetHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/timesheet", h.GetTimesheet).Methods("GET")
	r.HandleFunc("/timesheet/{projectId}/days/{day}", h.SetHours).Methods("PUT")
	r.HandleFunc("/projects", h.AddProject).Methods("POST")
	r.HandleFunc("/projects", h.ClearProjects).Methods("DELETE")
	r.HandleFunc("/projects/{id}", h.RemoveProject).Methods("DELETE")
}

// AddProjectRequest represents an add project request
type AddProjectRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SetHoursRequest carries the raw cell input. The value may be a JSON number or
// the string typed into the cell; anything that is not a number is stored as 0.
type SetHoursRequest struct {
	Value json.RawMessage `json:"value"`
}

// SetHoursResponse is the updated entry with the refreshed day totals
type SetHoursResponse struct {
	Entry       models.TimesheetEntry `json:"entry"`
	DailyTotals []models.DayTotal     `json:"dailyTotals"`
}

// GetTimesheet returns the reconciled week
func (h *TimesheetHandler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ws.Timesheet(r.Context()))
}

// AddProject creates a project with a generated color
func (h *TimesheetHandler) AddProject(w http.ResponseWriter, r *http.Request) {
	var req AddProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := h.ws.AddProject(r.Context(), validation.SanitizeText(req.Name))
	if err != nil {
		respondError(w, r, h.logger, err, "add project")
		return
	}
	respondJSON(w, http.StatusCreated, project)
}

// RemoveProject deletes a project and its timesheet entry
func (h *TimesheetHandler) RemoveProject(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.RemoveProject(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, h.logger, err, "remove project")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Project removed"})
}

// ClearProjects deletes every project and entry
func (h *TimesheetHandler) ClearProjects(w http.ResponseWriter, r *http.Request) {
	h.ws.ClearProjects(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"message": "All projects removed"})
}

// SetHours stores the hours of one project on one day
func (h *TimesheetHandler) SetHours(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	day, err := strconv.Atoi(vars["day"])
	if err != nil || !models.ValidDay(day) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("day must be a number between 0 and %d", models.WorkDays-1))
		return
	}

	var req SetHoursRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.ws.SetHours(r.Context(), vars["projectId"], day, rawHours(req.Value))
	if err != nil {
		respondError(w, r, h.logger, err, "update hours")
		return
	}
	respondJSON(w, http.StatusOK, SetHoursResponse{Entry: entry, DailyTotals: h.ws.DailyTotals()})
}

// rawHours turns the JSON value into the text a user would have typed
func rawHours(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		return n.String()
	}
	return ""
}
