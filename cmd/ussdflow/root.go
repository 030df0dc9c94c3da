package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ussdflow",
	Short: "ussdflow compiles visual USSD flows into Go services",
	Long: `ussdflow turns the node graphs drawn in the flow builder into standalone
USSD gateway programs, and serves the builder API that stores them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSlice("env", []string{".env"}, "Dotenv files to load before reading USSDFLOW_* variables")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides USSDFLOW_LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("strict", false, "Treat validation warnings as errors")
}

// loadConfig reads the environment and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	files, _ := cmd.Flags().GetStringSlice("env")
	cfg, err := config.Load(files...)
	if err != nil {
		return cfg, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = level
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		cfg.Strict = true
	}
	return cfg, nil
}

// setup loads the configuration and the logger for one-shot commands.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, io.Closer) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger, closer := cli.NewLogger(cfg)
	return cfg, logger, closer
}

// newBuilder returns a builder over an in-memory store for commands that
// never persist projects.
func newBuilder(cfg config.Config, logger *slog.Logger) *ussdflow.Builder {
	return ussdflow.New(nil, builderBaseOptions(cfg, logger)...)
}

// newStoreBuilder returns a builder over an opened backend.
func newStoreBuilder(cfg config.Config, logger *slog.Logger, backend *cli.Backend) *ussdflow.Builder {
	opts := builderBaseOptions(cfg, logger)
	if backend.Locker != nil {
		opts = append(opts, ussdflow.WithLocker(backend.Locker))
	}
	return ussdflow.New(backend.Store, opts...)
}
