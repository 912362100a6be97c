package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/store"
)

// Dir keeps the backup file in a local directory, typically one that another
// tool mirrors to the cloud. The revision is the SHA-256 of the file content.
type Dir struct {
	mu   sync.Mutex
	path string
}

// NewDir creates the directory if needed
func NewDir(dir, fileName string) (*Dir, error) {
	if fileName == "" {
		fileName = DefaultFileName
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &Dir{path: filepath.Join(dir, fileName)}, nil
}

func (d *Dir) Name() string { return "dir" }

func (d *Dir) Ready() bool { return true }

func (d *Dir) SignedIn() bool { return true }

// Path returns the backup file location
func (d *Dir) Path() string { return d.path }

func revisionOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (d *Dir) read() ([]byte, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	return data, nil
}

func (d *Dir) Load(_ context.Context) (models.PartialSnapshot, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := d.read()
	if err != nil {
		return models.PartialSnapshot{}, "", err
	}
	snap, err := models.DecodePartialSnapshot(data)
	if err != nil {
		return models.PartialSnapshot{}, "", err
	}
	return snap, revisionOf(data), nil
}

func (d *Dir) Save(_ context.Context, snap models.SyncSnapshot, baseRevision string) (string, error) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if baseRevision != "" {
		current, err := d.read()
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return "", err
		default:
			if rev := revisionOf(current); rev != baseRevision {
				return "", &ConflictError{ExpectedRevision: baseRevision, CurrentRevision: rev}
			}
		}
	}

	if err := store.WriteFileAtomic(d.path, data); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	return revisionOf(data), nil
}
