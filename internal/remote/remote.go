// Package remote stores the backup snapshot outside the machine, either in a
// cloud drive or in a plain directory.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/workflow/internal/models"
)

// DefaultFileName is the name of the backup file
const DefaultFileName = "workflow_data.json"

var (
	// ErrNotFound is returned by Load when no backup file exists yet
	ErrNotFound = errors.New("backup file not found")
	// ErrRevisionConflict is matched by ConflictError
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrNotSignedIn is returned when the adapter has no authenticated session
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNotConfigured is returned when the adapter is missing credentials
	ErrNotConfigured = errors.New("remote not configured")
	// ErrUnauthorized is returned when the remote rejected the session
	ErrUnauthorized = errors.New("remote rejected credentials")
)

// ConflictError reports that the remote file changed since the revision the caller last saw
type ConflictError struct {
	ExpectedRevision string
	CurrentRevision  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict: expected %s, remote is at %s", e.ExpectedRevision, e.CurrentRevision)
}

// Is makes errors.Is(err, ErrRevisionConflict) match
func (e *ConflictError) Is(target error) bool {
	return target == ErrRevisionConflict
}

// Adapter reads and writes the whole backup file
type Adapter interface {
	// Name identifies the adapter in logs and status output
	Name() string
	// Ready reports whether the adapter is configured and initialized
	Ready() bool
	// SignedIn reports whether an authenticated session is active
	SignedIn() bool
	// Load reads the backup file and returns it with its revision
	Load(ctx context.Context) (models.PartialSnapshot, string, error)
	// Save overwrites the backup file. A non-empty baseRevision makes the write
	// conditional: it fails with a ConflictError when the remote revision differs.
	Save(ctx context.Context, snap models.SyncSnapshot, baseRevision string) (string, error)
}

func encodeSnapshot(snap models.SyncSnapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}
