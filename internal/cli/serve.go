package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"social-service/config"
	"social-service/internal/server"
)

const healthInterval = 15 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	InMemory bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the gRPC health server",
		Long: `Start the HTTP API and the gRPC health server.

The server connects to MongoDB, S3, Redis and NATS as configured by the
environment and stops gracefully on SIGINT or SIGTERM. NATS is optional:
when it is unreachable events are only logged.

Example:
  social-service serve
  social-service serve --in-memory --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts.RootOptions)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log, opts.InMemory)
		},
	}

	cmd.Flags().BoolVar(&opts.InMemory, "in-memory", false, "keep records, media and sessions in process (development only)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, log *logrus.Logger, inMemory bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := buildApp(ctx, cfg, log, inMemory, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}

	httpServer := server.NewHTTPServer(cfg.Server.HTTPPort, a.router, log)
	grpcServer := server.NewGRPCServer(a.checks, log)

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.Serve() }()
	go func() { errCh <- grpcServer.Serve(cfg.Server.GRPCPort) }()
	go grpcServer.Monitor(ctx, healthInterval)

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("Shutting down gracefully...")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.WithError(serveErr).Error("Server stopped unexpectedly")
		}
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	grpcServer.Stop()

	if err := a.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to close backends")
	}

	log.Info("Server stopped")
	return serveErr
}
