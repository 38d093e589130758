package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/animgate"
	"github.com/aretw0/animgate/internal/cli"
	"github.com/aretw0/animgate/internal/presentation/tui"
	httpAdapter "github.com/aretw0/animgate/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes normalization over a JSON API. Requests are validated against the
embedded OpenAPI document and Prometheus metrics are served on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cliOptions(cmd)
		f, err := cli.LoadConfig(opts)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			f.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}

		logger := cli.NewLogger(opts)
		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		engine, res, err := cli.CreateEngine(ctx, opts, f, logger)
		if err != nil {
			return err
		}
		defer res.Close()

		var handlerOpts []httpAdapter.Option
		if f.HTTP.Metrics {
			handlerOpts = append(handlerOpts, httpAdapter.WithMetricsHandler(res.Metrics.Handler()))
		}
		if !f.HTTP.Validate {
			handlerOpts = append(handlerOpts, httpAdapter.WithoutValidation())
		}
		handler, err := httpAdapter.NewHandler(engine, handlerOpts...)
		if err != nil {
			return fmt.Errorf("error building handler: %w", err)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", f.HTTP.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if tui.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr, strings.TrimSpace(animgate.Version))
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting animgate server", "addr", srv.Addr, "project", engine.Name, "store", f.Store.Kind)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("Start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("Error killing server", "err", err)
				}
			}
			logger.Info("animgate server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides http.port)")
}
