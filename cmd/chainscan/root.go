package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"chainlead/internal/app"
	"chainlead/internal/platform/config"
	"chainlead/internal/platform/logger"
)

var rootFlags struct {
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:   "chainscan",
	Short: "Detect ownership chains from the command line",
	Long: `chainscan runs the ownership-chain detector against the configured
database and data providers without going through the HTTP API.

Configuration comes from the environment (and an optional .env file),
exactly as for the server.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "log pipeline progress to stderr")

	rootCmd.AddCommand(listingCmd)
	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tokenCmd)
}

func newLogger(cmd *cobra.Command, cfg config.LogConfig) *slog.Logger {
	if !rootFlags.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.Format = "text"
	return logger.NewWithWriter(cmd.ErrOrStderr(), cfg)
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	a, err := app.Build(ctx, cfg, newLogger(cmd, cfg.Log), prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
