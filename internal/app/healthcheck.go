package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/extforge/internal/ctxlog"
)

// Run stages reported by the health check endpoint.
const (
	stageIdle      = "idle"
	stageLoading   = "loading"
	stageResolving = "resolving"
	stagePlanning  = "planning"
	stageBuilding  = "building"
	stageDone      = "done"
	stageFailed    = "failed"
)

func (a *App) setStage(s string) {
	a.stage.Store(s)
}

// Stage returns the current run stage.
func (a *App) Stage() string {
	s, _ := a.stage.Load().(string)
	return s
}

// healthHandler reports liveness and the current run stage.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK", "stage": a.Stage()})
}

// startHealthcheckServer runs the health check HTTP server until
// closeHealthcheckServer is called. It returns the bound address.
func (a *App) startHealthcheckServer(ctx context.Context, port int) (string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring health check server.")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return "", fmt.Errorf("failed to start health check server: %w", err)
	}
	a.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Health check server starting.", "address", ln.Addr().String())
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly.", "error", err)
		}
	}()
	return ln.Addr().String(), nil
}

func (a *App) closeHealthcheckServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Debug("Shutting down health check server.")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed.", "error", err)
		return err
	}
	a.httpServer = nil
	return nil
}
