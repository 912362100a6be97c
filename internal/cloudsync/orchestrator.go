// Package cloudsync decides when the workspace is written to and read from the
// remote backup file. Local changes are debounced into a single save; manual
// saves and loads bypass the debounce.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/notice"
	"github.com/benvon/workflow/internal/remote"
	"github.com/benvon/workflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	// DefaultDebounce is the quiet period after the last change before an auto-save
	DefaultDebounce = 5 * time.Second
	// DefaultSuccessDisplay is how long the success status stays before returning to idle
	DefaultSuccessDisplay = 3 * time.Second
	// DefaultTimeout bounds a single remote save or load
	DefaultTimeout = 60 * time.Second
)

// Status is the visible state of the last save
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSaving  Status = "saving"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Phase is the lifecycle of the orchestrator
type Phase string

const (
	// PhaseInitializing ignores change notifications so loading stored state
	// never schedules a save
	PhaseInitializing Phase = "initializing"
	PhaseReady        Phase = "ready"
)

// Texts of the notices posted by manual operations
const (
	NoticeSaved        = "Data saved to the backup file."
	NoticeSaveFailed   = "Saving the backup file failed."
	NoticeSaveConflict = "The backup file was changed elsewhere. Load it first or force the save."
	NoticeLoaded       = "Data loaded and synced."
	NoticeNoBackup     = "No backup file found."
	NoticeLoadFailed   = "Loading the backup file failed."
)

// Source is the state being synchronized
type Source interface {
	Snapshot(now time.Time) models.SyncSnapshot
	Apply(ctx context.Context, snap models.PartialSnapshot)
	AutoSave() bool
}

// Config tunes the timers; zero values select the defaults
type Config struct {
	Debounce       time.Duration
	SuccessDisplay time.Duration
	Timeout        time.Duration
	// Revisions keeps the last seen remote revision across restarts
	Revisions RevisionStore
}

// RevisionStore persists the revision conditional writes are based on
type RevisionStore interface {
	LoadSyncRevision(ctx context.Context, remoteName string) string
	SaveSyncRevision(ctx context.Context, remoteName, revision string) error
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.SuccessDisplay <= 0 {
		c.SuccessDisplay = DefaultSuccessDisplay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// StatusReport is a point-in-time view of the orchestrator
type StatusReport struct {
	Status      Status     `json:"status"`
	Phase       Phase      `json:"phase"`
	Pending     bool       `json:"pending"`
	AutoSave    bool       `json:"auto_save"`
	Remote      string     `json:"remote"`
	RemoteReady bool       `json:"remote_ready"`
	SignedIn    bool       `json:"signed_in"`
	Revision    string     `json:"revision,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
	LastLoadAt  *time.Time `json:"last_loaded_at,omitempty"`
}

// LoadResult describes a manual load
type LoadResult struct {
	Found       bool   `json:"found"`
	Revision    string `json:"revision,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// Orchestrator owns the sync status and the debounce timer
type Orchestrator struct {
	source  Source
	remote  remote.Adapter
	notices *notice.Board
	logger  *zap.Logger
	cfg     Config
	now     func() time.Time

	mu         sync.Mutex
	phase      Phase
	status     Status
	pending    bool
	gen        uint64
	debounce   *time.Timer
	statusGen  uint64
	resetTimer *time.Timer
	lastErr    error
	lastSaved  time.Time
	lastLoaded time.Time
	revision   string
	closed     bool

	// remoteMu serializes remote reads and writes of this process
	remoteMu sync.Mutex
	inflight sync.WaitGroup
}

// New creates an orchestrator in the initializing phase
func New(source Source, adapter remote.Adapter, notices *notice.Board, logger *zap.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notices == nil {
		notices = notice.NewBoard(notice.DefaultTTL)
	}
	return &Orchestrator{
		source:  source,
		remote:  adapter,
		notices: notices,
		logger:  logger,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		phase:   PhaseInitializing,
		status:  StatusIdle,
	}
}

// Remote returns the adapter
func (o *Orchestrator) Remote() remote.Adapter {
	return o.remote
}

// RestoreRevision picks up the revision recorded by an earlier run, so the first
// save after a restart is still conditional
func (o *Orchestrator) RestoreRevision(ctx context.Context) {
	if o.cfg.Revisions == nil {
		return
	}
	rev := o.cfg.Revisions.LoadSyncRevision(ctx, o.remote.Name())
	if rev == "" {
		return
	}
	o.mu.Lock()
	if o.revision == "" {
		o.revision = rev
	}
	o.mu.Unlock()
	o.logger.Debug("sync_revision_restored", zap.String("revision", rev))
}

func (o *Orchestrator) recordRevision(ctx context.Context, rev string) {
	if o.cfg.Revisions == nil || rev == "" {
		return
	}
	if err := o.cfg.Revisions.SaveSyncRevision(ctx, o.remote.Name(), rev); err != nil {
		o.logger.Warn("sync_revision_persist_failed", zap.Error(err))
	}
}

// MarkReady ends the initializing phase; later notifications schedule saves
func (o *Orchestrator) MarkReady() {
	o.mu.Lock()
	o.phase = PhaseReady
	o.mu.Unlock()
	o.logger.Debug("sync_ready")
}

// Notify records a local change and restarts the debounce window
func (o *Orchestrator) Notify() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.phase != PhaseReady {
		return
	}
	o.pending = true
	o.gen++
	gen := o.gen
	if o.debounce != nil {
		o.debounce.Stop()
	}
	o.debounce = time.AfterFunc(o.cfg.Debounce, func() { o.fire(gen) })
}

// fire runs when a debounce window ends without further changes
func (o *Orchestrator) fire(gen uint64) {
	o.mu.Lock()
	if o.closed || gen != o.gen || !o.pending {
		o.mu.Unlock()
		return
	}
	o.pending = false
	o.debounce = nil
	o.inflight.Add(1)
	o.mu.Unlock()
	defer o.inflight.Done()

	if reason := o.autoSaveBlocked(); reason != "" {
		o.logger.Debug("auto_save_skipped", zap.String("reason", reason))
		return
	}
	if err := o.save(context.Background(), false, "auto"); err != nil {
		o.logger.Warn("auto_save_failed", zap.String("remote", o.remote.Name()), zap.Error(err))
	}
}

func (o *Orchestrator) autoSaveBlocked() string {
	switch {
	case !o.source.AutoSave():
		return "auto_save_disabled"
	case !o.remote.Ready():
		return "remote_not_ready"
	case !o.remote.SignedIn():
		return "not_signed_in"
	default:
		return ""
	}
}

// cancelPending drops a scheduled auto-save
func (o *Orchestrator) cancelPending() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = false
	o.gen++
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
}

func (o *Orchestrator) usable() error {
	if !o.remote.Ready() {
		return remote.ErrNotConfigured
	}
	if !o.remote.SignedIn() {
		return remote.ErrNotSignedIn
	}
	return nil
}

// save writes the current snapshot. Unless force is set the write is conditional
// on the last revision this process saw.
func (o *Orchestrator) save(ctx context.Context, force bool, trigger string) error {
	o.remoteMu.Lock()
	defer o.remoteMu.Unlock()

	o.mu.Lock()
	o.status = StatusSaving
	o.statusGen++
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
	base := o.revision
	o.mu.Unlock()
	if force {
		base = ""
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	ctx, span := telemetry.Tracer().Start(ctx, "cloudsync.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("sync.remote", o.remote.Name()),
		attribute.String("sync.trigger", trigger),
		attribute.Bool("sync.force", force),
	)

	start := time.Now()
	now := o.now()
	snap := o.source.Snapshot(now)
	rev, err := o.remote.Save(ctx, snap, base)
	if err == nil {
		o.recordRevision(ctx, rev)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		o.status = StatusError
		o.lastErr = err
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	o.status = StatusSuccess
	o.lastErr = nil
	o.lastSaved = now
	o.revision = rev
	o.statusGen++
	gen := o.statusGen
	o.resetTimer = time.AfterFunc(o.cfg.SuccessDisplay, func() { o.resetStatus(gen) })

	o.logger.Info("sync_saved",
		zap.String("remote", o.remote.Name()),
		zap.String("trigger", trigger),
		zap.String("revision", rev),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (o *Orchestrator) resetStatus(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == o.statusGen && o.status == StatusSuccess {
		o.status = StatusIdle
		o.resetTimer = nil
	}
}

// SaveNow writes the snapshot immediately, replacing any scheduled auto-save.
// With force set a revision conflict is ignored and the remote file overwritten.
func (o *Orchestrator) SaveNow(ctx context.Context, force bool) error {
	if err := o.usable(); err != nil {
		return err
	}
	o.cancelPending()

	err := o.save(ctx, force, "manual")
	switch {
	case err == nil:
		o.notices.Post(notice.KindSuccess, NoticeSaved)
	case errors.Is(err, remote.ErrRevisionConflict):
		o.notices.Post(notice.KindWarning, NoticeSaveConflict)
	default:
		o.notices.Post(notice.KindError, NoticeSaveFailed)
	}
	return err
}

// LoadNow reads the remote file and replaces every local collection it contains
func (o *Orchestrator) LoadNow(ctx context.Context) (LoadResult, error) {
	if err := o.usable(); err != nil {
		return LoadResult{}, err
	}

	o.remoteMu.Lock()
	defer o.remoteMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	ctx, span := telemetry.Tracer().Start(ctx, "cloudsync.load")
	defer span.End()
	span.SetAttributes(attribute.String("sync.remote", o.remote.Name()))

	snap, rev, err := o.remote.Load(ctx)
	if errors.Is(err, remote.ErrNotFound) {
		o.notices.Post(notice.KindInfo, NoticeNoBackup)
		return LoadResult{Found: false}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		o.notices.Post(notice.KindError, NoticeLoadFailed)
		o.mu.Lock()
		o.lastErr = err
		o.mu.Unlock()
		return LoadResult{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	o.source.Apply(ctx, snap)
	o.recordRevision(ctx, rev)

	o.mu.Lock()
	o.revision = rev
	o.lastLoaded = o.now()
	o.lastErr = nil
	o.mu.Unlock()

	o.logger.Info("sync_loaded",
		zap.String("remote", o.remote.Name()),
		zap.String("revision", rev),
		zap.String("last_updated", snap.LastUpdated),
	)
	o.notices.Post(notice.KindSuccess, NoticeLoaded)
	return LoadResult{Found: true, Revision: rev, LastUpdated: snap.LastUpdated}, nil
}

// Flush runs a scheduled auto-save right away. It is a no-op when nothing is pending.
func (o *Orchestrator) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.pending && !o.closed
	o.mu.Unlock()
	if !pending {
		return nil
	}
	o.cancelPending()

	if reason := o.autoSaveBlocked(); reason != "" {
		o.logger.Debug("flush_skipped", zap.String("reason", reason))
		return nil
	}
	return o.save(ctx, false, "flush")
}

// Close stops the timers and waits for a running auto-save
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.pending = false
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
	o.mu.Unlock()
	o.inflight.Wait()
}

// Status returns the current state
func (o *Orchestrator) Status() StatusReport {
	autoSave := o.source.AutoSave()
	ready := o.remote.Ready()
	signedIn := o.remote.SignedIn()

	o.mu.Lock()
	defer o.mu.Unlock()
	r := StatusReport{
		Status:      o.status,
		Phase:       o.phase,
		Pending:     o.pending,
		AutoSave:    autoSave,
		Remote:      o.remote.Name(),
		RemoteReady: ready,
		SignedIn:    signedIn,
		Revision:    o.revision,
	}
	if o.lastErr != nil {
		r.LastError = o.lastErr.Error()
	}
	if !o.lastSaved.IsZero() {
		t := o.lastSaved
		r.LastSavedAt = &t
	}
	if !o.lastLoaded.IsZero() {
		t := o.lastLoaded
		r.LastLoadAt = &t
	}
	return r
}
