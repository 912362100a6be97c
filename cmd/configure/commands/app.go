package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benvon/workflow/internal/app"
	"github.com/benvon/workflow/internal/config"
	"github.com/benvon/workflow/internal/logger"
	"go.uber.org/zap"
)

// Verbose enables logging to stderr
var Verbose bool

// closeTimeout bounds the final flush of a pending save
const closeTimeout = 30 * time.Second

// openApp loads the configuration and wires the application
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := zap.NewNop()
	if Verbose {
		if log, err = logger.NewDevelopmentLogger(cfg.ServerDebugMode); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	return app.New(ctx, cfg, log)
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
