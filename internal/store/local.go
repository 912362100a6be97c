package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/benvon/workflow/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Fixed keys of the persisted state. They match the browser storage keys of the
// web client so exported data stays interchangeable.
const (
	KeyProjects    = "wf_projects"
	KeyEntries     = "wf_entries"
	KeyNotes       = "wf_notes"
	KeyTasks       = "wf_tasks"
	KeyAutoSave    = "wf_autosave"
	KeyDriveConfig = "wf_drive_config"
	KeyDriveToken  = "wf_drive_token"

	// KeySyncRevision holds the remote revision of the last save or load
	KeySyncRevision = "wf_sync_revision"
)

// State is everything the local store knows about
type State struct {
	Projects []models.Project
	Entries  []models.TimesheetEntry
	Notes    []models.Note
	Tasks    []models.Task
	AutoSave bool
	Drive    models.DriveCredentials
}

// DefaultState is what a fresh installation starts with
func DefaultState() State {
	return State{
		Projects: models.DefaultProjects(),
		Entries:  []models.TimesheetEntry{},
		Notes:    []models.Note{},
		Tasks:    models.DefaultTasks(),
	}
}

// LocalStore persists the application state under fixed keys of a KV backend
type LocalStore struct {
	kv     KV
	logger *zap.Logger
}

// NewLocalStore wraps a backend
func NewLocalStore(kv KV, logger *zap.Logger) *LocalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{kv: kv, logger: logger}
}

// KV returns the underlying backend
func (s *LocalStore) KV() KV {
	return s.kv
}

// Load reads every key. Absent, unreadable or malformed values fall back to
// their default; such failures are logged at debug level and never returned.
func (s *LocalStore) Load(ctx context.Context) State {
	state := DefaultState()

	loadJSON(ctx, s, KeyProjects, &state.Projects)
	loadJSON(ctx, s, KeyEntries, &state.Entries)
	loadJSON(ctx, s, KeyNotes, &state.Notes)
	loadJSON(ctx, s, KeyTasks, &state.Tasks)
	loadJSON(ctx, s, KeyDriveConfig, &state.Drive)

	if raw, ok := s.read(ctx, KeyAutoSave); ok {
		state.AutoSave = string(bytes.TrimSpace(raw)) == "true"
	}

	return state
}

// loadJSON decodes key into target only when the stored value is valid; target keeps its default otherwise
func loadJSON[T any](ctx context.Context, s *LocalStore, key string, target *T) {
	raw, ok := s.read(ctx, key)
	if !ok {
		return
	}
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		s.logger.Debug("local_value_decode_failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return
	}
	*target = decoded
}

func (s *LocalStore) read(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Debug("local_value_read_failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	return raw, ok
}

// Persist serializes the full value and overwrites whatever was stored under key
func (s *LocalStore) Persist(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// LoadToken returns the persisted drive session token, or nil when none is stored
func (s *LocalStore) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	raw, ok, err := s.kv.Get(ctx, KeyDriveToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &tok, nil
}

// SaveToken persists the drive session token
func (s *LocalStore) SaveToken(ctx context.Context, tok *oauth2.Token) error {
	return s.Persist(ctx, KeyDriveToken, tok)
}

// ClearToken forgets the drive session token
func (s *LocalStore) ClearToken(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyDriveToken); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// syncRevision ties a revision to the remote that issued it
type syncRevision struct {
	Remote   string `json:"remote"`
	Revision string `json:"revision"`
}

// LoadSyncRevision returns the last revision recorded for the named remote. A
// revision of another remote, or none at all, yields "".
func (s *LocalStore) LoadSyncRevision(ctx context.Context, remoteName string) string {
	var rec syncRevision
	loadJSON(ctx, s, KeySyncRevision, &rec)
	if rec.Remote != remoteName {
		return ""
	}
	return rec.Revision
}

// SaveSyncRevision records the revision last seen on the named remote
func (s *LocalStore) SaveSyncRevision(ctx context.Context, remoteName, revision string) error {
	return s.Persist(ctx, KeySyncRevision, syncRevision{Remote: remoteName, Revision: revision})
}
