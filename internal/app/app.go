package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/specialistvlad/extforge/internal/resolver"
	"github.com/specialistvlad/extforge/internal/workspace"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   *workspace.Loader
	handlers *handlers.Handlers
	// cache outlives single runs: descriptors of packaged artifacts do not
	// change while the process lives.
	cache *resolver.DescriptorCache

	stage      atomic.Value
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Reports go to outW,
// logs to logW. With no modules the core handler modules are registered.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...handlers.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	hs := handlers.New().Register(modules...)
	logger.Debug("All handler modules registered.", "count", len(modules), "handlers", hs.Names())

	size := cfg.CacheSize
	if size <= 0 {
		size = resolver.DefaultCacheSize
	}
	cache, err := resolver.NewDescriptorCache(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create descriptor cache: %w", err)
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   workspace.NewLoader(),
		handlers: hs,
		cache:    cache,
	}
	a.setStage(stageIdle)
	return a, nil
}

// Handlers returns the application's handler registry. This is primarily
// for testing.
func (a *App) Handlers() *handlers.Handlers {
	return a.handlers
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
