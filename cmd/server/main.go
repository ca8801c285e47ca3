package main

import (
	"context"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/bootstrap"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// drainGrace is added to the request timeout so in-flight report builds can
// finish before the server is torn down.
const drainGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "changelog server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New()
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	if err = app.Init(ctx); err != nil {
		app.Logger.Error("failed to start changelog service", "error", err)
		return err
	}

	if err = app.Health(ctx); err != nil {
		app.Logger.Warn("report archive unhealthy, history may be unavailable", "error", err)
	}

	app.Logger.Info("changelog service started",
		"environment", app.Config.Environment,
		"log_level", app.Config.LogLevel,
		"default_release_branch", app.Config.DefaultReleaseBranch,
	)

	<-ctx.Done()
	stop()
	app.Logger.Info("shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.ServerRequestTimeout+drainGrace)
	defer cancel()

	if err = app.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("changelog service shutdown failed", "error", err)
		return err
	}

	app.Logger.Info("changelog service stopped")
	return nil
}
