package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/presentation/tui"
	httpAdapter "github.com/aretw0/ussdflow/pkg/adapters/http"
	"github.com/aretw0/ussdflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flow builder HTTP API",
	Long: `Serves the project, validation and code generation API. The store, rate
limits, CORS origins and at-rest protection come from USSDFLOW_* variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger, closer := setup(cmd)
		defer closer.Close()

		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		validateRequests, _ := cmd.Flags().GetBool("validate-requests")

		if term.IsTerminal(int(os.Stdout.Fd())) {
			tui.PrintBanner(os.Stdout, ussdflow.Version)
		}

		ctx, cancel := cli.ShutdownContext(context.Background(), logger)
		defer cancel()

		if err := serve(ctx, cfg, logger, validateRequests); err != nil {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
		if sig := cli.StoppedBy(ctx); sig != nil {
			logger.Info("ussdflow server stopped gracefully", "signal", sig.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", config.Default().Port, "Port to listen on (overrides USSDFLOW_PORT)")
	serveCmd.Flags().Bool("validate-requests", false, "Reject requests that do not match the OpenAPI document")
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, validateRequests bool) error {
	backend, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing store", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	streams := httpAdapter.NewStreamManager(logger)
	builderOpts := []ussdflow.Option{
		ussdflow.WithMetrics(metrics),
		ussdflow.WithLifecycleHooks(cli.ChainHooks(streams.Hooks(), cli.DebugHooks(logger))),
	}
	if backend.Locker != nil {
		builderOpts = append(builderOpts, ussdflow.WithLocker(backend.Locker))
	}
	builder := ussdflow.New(backend.Store, append(builderOpts, builderBaseOptions(cfg, logger)...)...)

	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithLogger(logger),
		httpAdapter.WithStreams(streams),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		httpAdapter.WithCORSOrigins(cfg.CORSOrigins...),
		httpAdapter.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	}
	if validateRequests {
		handlerOpts = append(handlerOpts, httpAdapter.WithRequestValidation())
	}
	handler, err := httpAdapter.NewHandler(builder, handlerOpts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("ussdflow server listening", "address", srv.Addr, "store", backend.Kind)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Start shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		return nil
	}
}

func builderBaseOptions(cfg config.Config, logger *slog.Logger) []ussdflow.Option {
	opts := []ussdflow.Option{ussdflow.WithLogger(logger)}
	if cfg.Strict {
		opts = append(opts, ussdflow.WithStrict())
	}
	return opts
}
