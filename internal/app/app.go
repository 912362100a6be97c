package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/workflow/internal/cloudsync"
	"github.com/benvon/workflow/internal/config"
	"github.com/benvon/workflow/internal/notice"
	"github.com/benvon/workflow/internal/remote"
	"github.com/benvon/workflow/internal/services/ai"
	"github.com/benvon/workflow/internal/store"
	"github.com/benvon/workflow/internal/workspace"
	"go.uber.org/zap"
)

// App is the wired application shared by the server and the configure tool
type App struct {
	KV        store.KV
	Local     *store.LocalStore
	Workspace *workspace.Workspace
	Remote    remote.Adapter
	// Drive is set when the drive backend is selected
	Drive   *remote.Drive
	Sync    *cloudsync.Orchestrator
	Notices *notice.Board
	logger  *zap.Logger
}

// New opens the local store, restores the state and connects the remote and
// the assistant. The returned app is ready: auto-save may fire on the next change.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	kv, err := store.Open(ctx, cfg.StoreBackend, cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	local := store.NewLocalStore(kv, logger)
	state := local.Load(ctx)

	a := &App{
		KV:      kv,
		Local:   local,
		Notices: notice.NewBoard(notice.DefaultTTL),
		logger:  logger,
	}

	switch cfg.RemoteBackend {
	case config.RemoteDir:
		dir, err := remote.NewDir(cfg.RemoteDir, cfg.DriveFileName)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("failed to open backup directory: %w", err)
		}
		a.Remote = dir
	default:
		drive, err := remote.NewDrive(ctx, remote.DriveConfig{
			Credentials:  state.Drive,
			ClientSecret: cfg.GoogleClientSecret,
			FileName:     cfg.DriveFileName,
		}, local, logger)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("failed to create drive adapter: %w", err)
		}
		a.Remote = drive
		a.Drive = drive
	}

	opts := workspace.Options{
		Store:     local,
		Assistant: NewAssistant(cfg, logger),
		Notices:   a.Notices,
		Logger:    logger,
	}
	if a.Drive != nil {
		opts.Drive = a.Drive
	}
	a.Workspace = workspace.New(state, opts)

	a.Sync = cloudsync.New(a.Workspace, a.Remote, a.Notices, logger, cloudsync.Config{
		Debounce:       cfg.SyncDebounce,
		SuccessDisplay: cfg.SyncSuccessDisplay,
		Timeout:        cfg.SyncTimeout,
		Revisions:      local,
	})
	a.Sync.RestoreRevision(ctx)
	a.Workspace.SetListener(a.Sync)
	a.Workspace.Reconcile(ctx)
	a.Sync.MarkReady()

	return a, nil
}

// NewAssistant creates the assistant for the configured provider. Without an
// API key every assist operation falls back.
func NewAssistant(cfg *config.Config, logger *zap.Logger) *ai.Assistant {
	var provider ai.Provider
	if key := cfg.AIKey(); key != "" {
		p, err := ai.DefaultRegistry().GetProvider(cfg.AIProvider, map[string]string{
			"api_key":  key,
			"model":    cfg.AIModel,
			"base_url": cfg.AIBaseURL,
			"debug":    fmt.Sprint(cfg.ServerDebugMode),
		}, logger)
		if err != nil {
			logger.Warn("ai_provider_unavailable", zap.String("provider", cfg.AIProvider), zap.Error(err))
		} else {
			provider = p
		}
	} else {
		logger.Info("ai_provider_not_configured", zap.String("provider", cfg.AIProvider))
	}

	assistant := ai.NewAssistant(provider, logger)
	assistant.SetTimeout(cfg.AIAssistTimeout)
	return assistant
}

// Close writes a pending auto-save and releases the store
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Sync.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush pending save: %w", err))
	}
	a.Sync.Close()
	a.Notices.Close()
	if err := a.KV.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close local store: %w", err))
	}
	return errors.Join(errs...)
}
