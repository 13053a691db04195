// Package app wires command line bootstrapping for the agrichat server.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"

	"github.com/kart-io/agrichat/cmd/agrichat/app/options"
	"github.com/kart-io/agrichat/internal/agrichat"
	"github.com/kart-io/agrichat/pkg/app"
)

const commandDesc = `The agrichat server answers agricultural disease questions over HTTP.

On startup it ingests the configured web pages and PDFs into a chunked,
embedded knowledge base, or loads a previously persisted index. Questions
are rewritten against the session history, grounded in retrieved context
and answered by the configured chat model.`

// NewApp creates the agrichat application.
func NewApp() *app.App {
	opts := options.NewServerOptions()

	return app.NewApp(
		app.WithName("agrichat"),
		app.WithShortDescription("Agricultural disease chat service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return run(opts)
		}),
	)
}

func run(opts *options.ServerOptions) error {
	server, err := agrichat.NewServer(opts.Config())
	if err != nil {
		return err
	}

	ctx := setupSignalContext()
	return server.Run(ctx)
}

// setupSignalContext cancels the returned context on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-ch
		logger.Infow("Received shutdown signal", "signal", sig.String())
		cancel()
		<-ch
		os.Exit(1)
	}()

	return ctx
}
