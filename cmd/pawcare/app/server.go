// Package app provides the pawcare server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kart-io/pawcare/cmd/pawcare/app/options"
	"github.com/kart-io/pawcare/pkg/infra/app"
)

const (
	// Name is the name of the application.
	Name = "pawcare"

	// commandDesc is the description of the command.
	commandDesc = `PawCare pet health triage service

Answers pet owners' health questions from an indexed veterinary library.

This server provides:
  - Urgency triage of every message before anything else runs
  - Optional skin-condition analysis of an attached photo
  - Retrieval-augmented answers grounded in the indexed documents
  - Document indexing into Milvus, on demand or on file changes`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Pet health triage service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithArgs(cobra.NoArgs),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
