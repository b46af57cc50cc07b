package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/api"
	"github.com/JakeFAU/retail-listing-scraper/internal/config"
	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
)

type scrapeOptions struct {
	channel        string
	url            string
	dryRun         bool
	maxPerCategory int
}

// newScrapeCmd creates and configures the 'scrape' subcommand.
func newScrapeCmd() *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrapes one channel's catalog, or a single product with --url",
		Long: `Runs a full catalog crawl of the given channel and publishes every
product found. With --url only that product page is scraped and published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.channel, "channel", "", "source channel to scrape (e.g. recetecom)")
	cmd.Flags().StringVar(&opts.url, "url", "", "scrape only this product URL")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "keep messages in memory instead of publishing them")
	cmd.Flags().IntVar(&opts.maxPerCategory, "max-per-category", -1,
		"products taken from each category, 0 for all (default from crawl.max_products_per_category)")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func runScrape(cmd *cobra.Command, opts *scrapeOptions) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	if opts.dryRun {
		cfg.Queue.Provider = config.QueueMemory
	}
	maxPerCategory := cfg.Crawl.MaxProductsPerCategory
	if opts.maxPerCategory >= 0 {
		maxPerCategory = opts.maxPerCategory
	}

	ctx := cmd.Context()
	services, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.Warn("failed to close services", zap.Error(cerr))
		}
	}()

	orch, err := services.Orchestrator(opts.channel, maxPerCategory)
	if err != nil {
		return err
	}

	stopOps, err := startOpsServer(ctx, cfg.Metrics.Addr, opts.channel, orch, logger)
	if err != nil {
		return err
	}
	defer stopOps()

	_, stats, err := orch.Run(ctx, opts.url)
	if err != nil {
		return fmt.Errorf("scrape %s: %w", opts.channel, err)
	}
	return writeSummary(cmd, opts.channel, orch.State(), stats)
}

// startOpsServer serves health and metrics on addr for the lifetime of the run.
// An empty addr disables it.
func startOpsServer(ctx context.Context, addr, channel string, run api.RunStatus, logger *zap.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	logger.Info("serving ops endpoints", zap.String("addr", ln.Addr().String()))

	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := api.NewServer(channel, run, logger).Serve(srvCtx, ln); err != nil {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

func writeSummary(cmd *cobra.Command, channel string, state scraper.State, stats scraper.RunStats) error {
	summary := struct {
		Channel string           `json:"channel"`
		State   scraper.State    `json:"state"`
		Stats   scraper.RunStats `json:"stats"`
	}{Channel: channel, State: state, Stats: stats}
	enc := json.NewEncoder(cmd.OutOrStdout())
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
