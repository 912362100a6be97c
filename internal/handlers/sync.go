package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/workflow/internal/cloudsync"
	"github.com/benvon/workflow/internal/notice"
	"github.com/benvon/workflow/internal/remote"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Texts of the notices posted around the drive session
const (
	NoticeSignedIn    = "Connected to Google Drive."
	NoticeSignInError = "Sign-in to Google Drive failed."
	NoticeSignedOut   = "Disconnected from Google Drive."
)

// defaultLoginWindow bounds the wait for a device code confirmation when the
// authorization server sent no expiry
const defaultLoginWindow = 15 * time.Minute

// SessionManager is a remote that needs an interactive sign-in
type SessionManager interface {
	BeginDeviceLogin(ctx context.Context) (*remote.DeviceLogin, error)
	CompleteDeviceLogin(ctx context.Context, login *remote.DeviceLogin) error
	SignOut(ctx context.Context) error
}

// SyncHandler serves manual save and load, the sync status and the drive session
type SyncHandler struct {
	orch     *cloudsync.Orchestrator
	sessions SessionManager
	notices  *notice.Board
	logger   *zap.Logger

	baseCtx context.Context
	stop    context.CancelFunc

	mu           sync.Mutex
	login        *remote.DeviceLogin
	cancelLogin  context.CancelFunc
	loginWaiters sync.WaitGroup
}

// NewSyncHandler creates a sync handler. sessions is nil for remotes that need no sign-in.
func NewSyncHandler(orch *cloudsync.Orchestrator, sessions SessionManager, notices *notice.Board, logger *zap.Logger) *SyncHandler {
	ctx, stop := context.WithCancel(context.Background())
	return &SyncHandler{
		orch:     orch,
		sessions: sessions,
		notices:  notices,
		logger:   logger,
		baseCtx:  ctx,
		stop:     stop,
	}
}

// RegisterRoutes registers sync routes on the /api/v1 router
func (h *SyncHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sync", h.GetStatus).Methods("GET")
	r.HandleFunc("/sync/save", h.Save).Methods("POST")
	r.HandleFunc("/sync/load", h.Load).Methods("POST")
	r.HandleFunc("/sync/login", h.Login).Methods("POST")
	r.HandleFunc("/sync/logout", h.Logout).Methods("POST")
	r.HandleFunc("/sync/notice", h.DismissNotice).Methods("DELETE")
}

// SaveRequest represents a manual save request
type SaveRequest struct {
	Force bool `json:"force"`
}

// StatusResponse is the sync status with the notice currently shown
type StatusResponse struct {
	Sync   cloudsync.StatusReport `json:"sync"`
	Notice *notice.Notice         `json:"notice,omitempty"`
	Login  *remote.DeviceLogin    `json:"login,omitempty"`
}

// Close cancels a pending sign-in and waits for it to stop
func (h *SyncHandler) Close() {
	h.stop()
	h.loginWaiters.Wait()
}

func (h *SyncHandler) status() StatusResponse {
	resp := StatusResponse{Sync: h.orch.Status()}
	if n, ok := h.notices.Current(); ok {
		resp.Notice = &n
	}
	h.mu.Lock()
	resp.Login = h.login
	h.mu.Unlock()
	return resp
}

// GetStatus returns the sync status and the current notice
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.status())
}

// Save writes the snapshot to the remote now. {"force": true} overwrites a file
// that changed elsewhere.
func (h *SyncHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	if err := h.orch.SaveNow(r.Context(), req.Force); err != nil {
		respondSyncError(w, r, h.logger, err, "save the backup file")
		return
	}
	respondJSON(w, http.StatusOK, h.status())
}

// Load replaces the local collections with the remote file
func (h *SyncHandler) Load(w http.ResponseWriter, r *http.Request) {
	res, err := h.orch.LoadNow(r.Context())
	if err != nil {
		respondSyncError(w, r, h.logger, err, "load the backup file")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// respondSyncError reports remote failures that carry no domain meaning as 502
func respondSyncError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, action string) {
	if _, ok := statusForError(err); ok {
		respondError(w, r, log, err, action)
		return
	}
	log.Warn("sync_request_failed", zap.String("action", action), zap.Error(err))
	respondJSONError(w, http.StatusBadGateway, http.StatusText(http.StatusBadGateway), "Failed to "+action)
}

// Login starts a device sign-in. The response carries the code the user enters
// at the verification URL; completion is reported through the notice and status.
func (h *SyncHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "The configured remote does not need a sign-in")
		return
	}

	login, err := h.sessions.BeginDeviceLogin(r.Context())
	if err != nil {
		if errors.Is(err, remote.ErrNotConfigured) {
			respondJSONError(w, http.StatusPreconditionFailed, "Precondition Failed", "Enter the drive API key and client id first")
			return
		}
		respondSyncError(w, r, h.logger, err, "start sign-in")
		return
	}

	deadline := login.ExpiresAt
	if deadline.IsZero() {
		deadline = time.Now().Add(defaultLoginWindow)
	}
	ctx, cancel := context.WithDeadline(h.baseCtx, deadline)

	h.mu.Lock()
	if h.cancelLogin != nil {
		h.cancelLogin()
	}
	h.login = login
	h.cancelLogin = cancel
	h.loginWaiters.Add(1)
	h.mu.Unlock()

	go h.awaitLogin(ctx, cancel, login)

	h.logger.Info("drive_login_started", zap.Time("expires_at", deadline))
	respondJSON(w, http.StatusAccepted, login)
}

func (h *SyncHandler) awaitLogin(ctx context.Context, cancel context.CancelFunc, login *remote.DeviceLogin) {
	defer h.loginWaiters.Done()
	defer cancel()

	err := h.sessions.CompleteDeviceLogin(ctx, login)

	h.mu.Lock()
	current := h.login == login
	if current {
		h.login = nil
		h.cancelLogin = nil
	}
	h.mu.Unlock()
	if !current {
		// replaced by a newer sign-in
		return
	}

	switch {
	case err == nil:
		h.logger.Info("drive_signed_in")
		h.notices.Post(notice.KindSuccess, NoticeSignedIn)
	case errors.Is(h.baseCtx.Err(), context.Canceled):
	default:
		h.logger.Warn("drive_login_failed", zap.Error(err))
		h.notices.Post(notice.KindError, NoticeSignInError)
	}
}

// Logout ends the drive session
func (h *SyncHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "The configured remote does not need a sign-in")
		return
	}

	h.mu.Lock()
	if h.cancelLogin != nil {
		h.cancelLogin()
	}
	h.login = nil
	h.cancelLogin = nil
	h.mu.Unlock()

	if err := h.sessions.SignOut(r.Context()); err != nil {
		respondError(w, r, h.logger, err, "sign out")
		return
	}
	h.logger.Info("drive_signed_out")
	h.notices.Post(notice.KindInfo, NoticeSignedOut)
	respondJSON(w, http.StatusOK, h.status())
}

// DismissNotice hides the current notice
func (h *SyncHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	h.notices.Dismiss()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notice dismissed"})
}
