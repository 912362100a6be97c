package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KV is a flat key-value persistence backend. Values are opaque bytes and every
// Set replaces the previous value for the key as a whole.
type KV interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites the value stored under key
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown store backend")

// DefaultDataDir returns the default directory for local data (~/.workflow)
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".workflow"), nil
}

// Open creates the backend named by backend. dsn is interpreted per backend:
// a directory for file, a database path for sqlite, a connection string for
// postgres and a redis URL for redis. An empty dsn selects the default location
// for the file based backends.
func Open(ctx context.Context, backend, dsn string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendFile:
		if dsn == "" {
			dir, err := DefaultDataDir()
			if err != nil {
				return nil, err
			}
			dsn = filepath.Join(dir, "store")
		}
		return NewFileKV(dsn)
	case "", BackendSQLite:
		if dsn == "" {
			dir, err := DefaultDataDir()
			if err != nil {
				return nil, err
			}
			dsn = filepath.Join(dir, "workflow.db")
		}
		return OpenSQLite(ctx, dsn)
	case BackendPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres backend requires STORE_DSN")
		}
		return OpenPostgres(ctx, dsn)
	case BackendRedis:
		if dsn == "" {
			return nil, fmt.Errorf("redis backend requires STORE_DSN")
		}
		return OpenRedis(ctx, dsn, DefaultRedisPrefix)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}
