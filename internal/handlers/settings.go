package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/workspace"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SettingsHandler serves the settings screen and the local backup export
type SettingsHandler struct {
	ws     *workspace.Workspace
	logger *zap.Logger
	now    func() time.Time
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(ws *workspace.Workspace, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{ws: ws, logger: logger, now: time.Now}
}

// RegisterRoutes registers settings and backup routes on the /api/v1 router
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/settings", h.GetSettings).Methods("GET")
	r.HandleFunc("/settings/drive", h.SetDrive).Methods("PUT")
	r.HandleFunc("/settings/autosave", h.SetAutoSave).Methods("PUT")
	r.HandleFunc("/settings/view", h.SetView).Methods("PUT")
	r.HandleFunc("/backup", h.DownloadBackup).Methods("GET")
}

// DriveSettingsRequest carries the cloud drive API credentials
type DriveSettingsRequest struct {
	APIKey   string `json:"apiKey" validate:"max=200"`
	ClientID string `json:"clientId" validate:"max=300"`
}

// AutoSaveRequest turns auto-save on or off
type AutoSaveRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ViewRequest switches the active screen
type ViewRequest struct {
	View string `json:"view" validate:"required,view"`
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ws.Settings())
}

// SetDrive stores new drive credentials. Changing the client id signs the drive out.
func (h *SettingsHandler) SetDrive(w http.ResponseWriter, r *http.Request) {
	var req DriveSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	creds := h.ws.SetDriveCredentials(r.Context(), models.DriveCredentials{APIKey: req.APIKey, ClientID: req.ClientID})
	h.logger.Info("drive_credentials_updated", zap.Bool("complete", creds.Complete()))
	respondJSON(w, http.StatusOK, h.ws.Settings())
}

// SetAutoSave turns auto-save on or off
func (h *SettingsHandler) SetAutoSave(w http.ResponseWriter, r *http.Request) {
	var req AutoSaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.ws.SetAutoSave(r.Context(), *req.Enabled)
	respondJSON(w, http.StatusOK, h.ws.Settings())
}

// SetView switches the active screen
func (h *SettingsHandler) SetView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.ws.SetView(models.View(req.View)); err != nil {
		respondError(w, r, h.logger, err, "switch view")
		return
	}
	respondJSON(w, http.StatusOK, h.ws.Settings())
}

// DownloadBackup sends the full snapshot as a JSON file attachment
func (h *SettingsHandler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.ws.ExportBackup(h.now())
	if err != nil {
		respondError(w, r, h.logger, err, "export backup")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("backup_write_failed", zap.Error(err))
	}
}
