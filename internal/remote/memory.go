package remote

import (
	"context"
	"strconv"
	"sync"

	"github.com/benvon/workflow/internal/models"
)

// Memory keeps the backup file in process memory
type Memory struct {
	mu       sync.Mutex
	data     []byte
	version  int
	ready    bool
	signedIn bool
	saveErr  error
	loadErr  error
	saves    int
}

// NewMemory returns a ready, signed in adapter with no backup file
func NewMemory() *Memory {
	return &Memory{ready: true, signedIn: true}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *Memory) SignedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signedIn
}

// SetReady toggles Ready
func (m *Memory) SetReady(ready bool) {
	m.mu.Lock()
	m.ready = ready
	m.mu.Unlock()
}

// SetSignedIn toggles SignedIn
func (m *Memory) SetSignedIn(signedIn bool) {
	m.mu.Lock()
	m.signedIn = signedIn
	m.mu.Unlock()
}

// FailSaves makes every Save return err until cleared with nil
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// FailLoads makes every Load return err until cleared with nil
func (m *Memory) FailLoads(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

// Saves returns how many writes succeeded
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Put replaces the stored file as if another client had written it
func (m *Memory) Put(data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.version++
	return strconv.Itoa(m.version)
}

// Raw returns the stored file content
func (m *Memory) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

func (m *Memory) Load(_ context.Context) (models.PartialSnapshot, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return models.PartialSnapshot{}, "", m.loadErr
	}
	if m.data == nil {
		return models.PartialSnapshot{}, "", ErrNotFound
	}
	snap, err := models.DecodePartialSnapshot(m.data)
	if err != nil {
		return models.PartialSnapshot{}, "", err
	}
	return snap, strconv.Itoa(m.version), nil
}

func (m *Memory) Save(_ context.Context, snap models.SyncSnapshot, baseRevision string) (string, error) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	if baseRevision != "" && m.data != nil {
		if current := strconv.Itoa(m.version); current != baseRevision {
			return "", &ConflictError{ExpectedRevision: baseRevision, CurrentRevision: current}
		}
	}
	m.data = data
	m.version++
	m.saves++
	return strconv.Itoa(m.version), nil
}
