// Package app assembles jobtracker components: the client stack used by CLI
// commands and the sandbox API server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/jobtracker/internal/config"
	"github.com/stacklok/jobtracker/internal/telemetry"
)

// SandboxApp encapsulates the components needed to run the sandbox API server.
// It provides lifecycle management and graceful shutdown.
type SandboxApp struct {
	config        *config.Config
	components    *AppComponents
	httpServer    *http.Server
	metricsServer *http.Server
	telemetry     *telemetry.Telemetry

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start serves the API, and the metrics endpoint when configured. It blocks
// until the servers stop or one of them fails.
func (app *SandboxApp) Start() error {
	g, gctx := errgroup.WithContext(app.ctx)

	if app.metricsServer != nil {
		g.Go(func() error {
			<-gctx.Done()
			if app.ctx.Err() == nil {
				// one server failed; take the other one down with it
				_ = app.httpServer.Close()
				_ = app.metricsServer.Close()
			}
			return nil
		})
		g.Go(func() error {
			slog.Info("Metrics listening", "address", app.metricsServer.Addr)
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("Sandbox listening", "address", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Stop gracefully stops the servers with the given timeout and flushes telemetry.
func (app *SandboxApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down sandbox...")

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}
	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server forced to shutdown: %w", err))
		}
	}
	if app.telemetry != nil {
		if err := app.telemetry.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("Sandbox shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *SandboxApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *SandboxApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetComponents returns the sandbox components
func (app *SandboxApp) GetComponents() *AppComponents {
	return app.components
}
