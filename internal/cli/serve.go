package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mem, err := a.memoryEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.Start(ctx, a.cfg, server.Deps{
		Store:    a.store,
		Memory:   mem,
		Merges:   a.mergePipeline(),
		Identity: a.identityBuilder(),
		Noise:    a.noise,
		Registry: a.registry,
		Logger:   a.logger,
		Version:  VersionString(),
	})
	if err != nil {
		return err
	}
	a.logger.Info("recall serving",
		zap.String("addr", srv.Addr()),
		zap.String("storage", a.cfg.Storage.Engine),
		zap.String("mode", a.cfg.Security.Mode))

	<-ctx.Done()
	a.logger.Info("shutting down")
	<-srv.Done()
	return nil
}

// contextOrBackground returns cmd's context, which is nil when the command
// runs outside ExecuteContext.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
