// Package server runs long-lived components with a shared lifecycle.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/kart-io/logger"
)

// Lifecycle defines the lifecycle interface for servers.
type Lifecycle interface {
	// Start starts the server. It must not block.
	Start(ctx context.Context) error
	// Stop stops the server gracefully.
	Stop(ctx context.Context) error
}

// Runnable represents a component that can be started and stopped.
type Runnable interface {
	Lifecycle
	// Name returns the server name for identification.
	Name() string
}

// Run starts every runnable in order, blocks until ctx is done, then stops
// them in reverse order within shutdownTimeout. If a start fails, the
// runnables already started are stopped and the start error is returned.
func Run(ctx context.Context, shutdownTimeout time.Duration, runnables ...Runnable) error {
	started := make([]Runnable, 0, len(runnables))
	var startErr error
	for _, r := range runnables {
		if err := r.Start(ctx); err != nil {
			logger.Errorw("Failed to start server", "name", r.Name(), "error", err)
			startErr = err
			break
		}
		logger.Infow("Server started", "name", r.Name())
		started = append(started, r)
	}

	if startErr == nil {
		<-ctx.Done()
		logger.Info("Shutting down servers...")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var stopErrs []error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(stopCtx); err != nil {
			logger.Errorw("Failed to stop server", "name", started[i].Name(), "error", err)
			stopErrs = append(stopErrs, err)
		}
	}

	if startErr != nil {
		return startErr
	}
	return errors.Join(stopErrs...)
}
