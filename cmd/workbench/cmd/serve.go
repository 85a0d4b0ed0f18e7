package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rflorenc/rainmaker-workbench/internal/api"
	"github.com/rflorenc/rainmaker-workbench/internal/config"
	"github.com/rflorenc/rainmaker-workbench/internal/models"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the diagnostic over HTTP",
	Long: `Start an HTTP server that runs the account diagnostic as background jobs.

  POST /api/probes            start a run (optional {"username","password"} body)
  GET  /api/jobs              list runs, most recent first
  GET  /api/jobs/{id}         one run with its output and summary
  GET  /ws/jobs/{id}/logs     stream a run's output over WebSocket

Examples:
  # Listen on the default address (:8080)
  workbench serve

  # Listen on localhost only
  workbench serve --listen 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&flagCfg.Listen, "listen", "",
		"HTTP listen address (default :8080)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &api.Server{
		Jobs:        models.NewJobStore(),
		Logger:      logger,
		NewRunner:   newRunner,
		Credentials: config.CredentialsFromEnv,
		BaseContext: ctx,
	}
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("address", cfg.Listen))
		cmd.Printf("RainMaker workbench %s listening on %s\n", appVersion, cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	logger.Info("waiting for running jobs")
	server.Wait()
	return err
}
