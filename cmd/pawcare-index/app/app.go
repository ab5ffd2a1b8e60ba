// Package app provides the pawcare-index command.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"github.com/kart-io/pawcare/pkg/infra/app"
	"github.com/kart-io/pawcare/pkg/infra/tracing"
)

const (
	// Name is the name of the command.
	Name = "pawcare-index"

	commandDesc = `Index a directory of veterinary documents into the pawcare vector store.

PDF, plain text and Markdown files are chunked, embedded and upserted into
Milvus. Chunk IDs are content hashes, so re-running on unchanged files
rewrites the same rows. Use --purge to start from an empty collection.`
)

// NewApp creates the pawcare-index command.
func NewApp() *app.App {
	opts := NewIndexOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Index documents for pawcare"),
		app.WithDescription(commandDesc),
		app.WithEnvPrefix("PAWCARE"),
		app.WithOptions(opts),
		app.WithArgs(cobra.NoArgs),
		app.WithRunFunc(func() error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, opts)
		}),
	)
}

// Run performs one purge and/or index pass.
func Run(ctx context.Context, opts *IndexOptions) error {
	cfg := opts.Config()
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions, app.GetVersion())
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = tp.Shutdown(sctx)
	}()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	comps, err := cfg.NewComponents(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	if opts.Purge {
		if err := comps.Pipeline.Purge(ctx); err != nil {
			return fmt.Errorf("failed to purge collection: %w", err)
		}
		fmt.Println("All vectors cleared.")
		if opts.PurgeOnly {
			return nil
		}
	}

	report, err := comps.Pipeline.IndexDirectory(ctx, opts.Directory)
	if err != nil {
		return err
	}

	for _, f := range report.Failures {
		logger.Warnw("file skipped", "path", f.Path, "error", f.Error)
	}
	fmt.Printf("Indexing complete. Processed chunks: %d (files: %d, failed: %d)\n",
		report.Chunks, report.Files, len(report.Failures))
	return nil
}
