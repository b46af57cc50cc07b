// Package cmd defines and implements the CLI commands for the scraper executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/app"
	"github.com/JakeFAU/retail-listing-scraper/internal/config"
	"github.com/JakeFAU/retail-listing-scraper/internal/logging"
)

// newApp is the application factory. It's a variable so tests can substitute
// in-memory services.
var newApp = app.New

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "Scrapes retailer catalogs and publishes product listings to a queue.",
		Long: `scraper walks a retailer's catalog (categories, listing pages, product
pages), extracts each product's details and publishes them as JSON messages
for downstream consumers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "config file (YAML); environment variables override it")

	cmd.AddCommand(newScrapeCmd())
	return cmd
}

// loadConfig reads the --config flag and builds the logger the command runs with.
func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("read config flag: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the run between units of work.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	logger, logErr := logging.New(logging.Options{})
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "command execution failed: %v\n", err)
		os.Exit(1)
	}
	logger.Fatal("command execution failed", zap.Error(err))
}
