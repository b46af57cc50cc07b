package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/metrics"
	"github.com/JakeFAU/retail-listing-scraper/internal/page"
)

// Listing outcomes recorded per product page.
const (
	OutcomePublished = "published"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

const (
	modeSingle = "single"
	modeCrawl  = "crawl"
)

// HeaderSourceChannel is attached to every published message next to the job id.
const HeaderSourceChannel = "source_channel"

// Archiver stores the raw body of a product page and returns its URI and content hash.
type Archiver interface {
	Archive(ctx context.Context, channel string, body []byte) (string, string, error)
}

// Options tunes an Orchestrator. The zero value crawls every product and skips
// the archive and ledger stages.
type Options struct {
	// MaxProductsPerCategory caps the products taken from each category; 0 means no cap.
	MaxProductsPerCategory int
	Archiver               Archiver
	Ledger                 Ledger
	Now                    func() time.Time
}

// Orchestrator drives one site through catalog discovery, extraction and publication.
type Orchestrator struct {
	site      Site
	pages     *PageFetcher
	publisher Publisher
	opts      Options
	logger    *zap.Logger

	mu    sync.Mutex
	state State
	stats RunStats
}

// NewOrchestrator wires a site to the page fetcher and publisher it should use.
func NewOrchestrator(site Site, pages *PageFetcher, publisher Publisher, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.MaxProductsPerCategory < 0 {
		opts.MaxProductsPerCategory = 0
	}
	return &Orchestrator{
		site:      site,
		pages:     pages,
		publisher: publisher,
		opts:      opts,
		logger:    logger.With(zap.String("channel", site.Name())),
		state:     StateIdle,
	}
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Stats returns a snapshot of the counters of the current or last run.
func (o *Orchestrator) Stats() RunStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Run scrapes a single product when url is set, otherwise the whole catalog.
// Single-product runs always finish Done; failures are only logged. A catalog
// crawl stops at the first category-level error and finishes Failed.
func (o *Orchestrator) Run(ctx context.Context, url string) (State, RunStats, error) {
	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return StateRunning, RunStats{}, errors.New("run already in progress")
	}
	o.state = StateRunning
	o.stats = RunStats{}
	o.mu.Unlock()

	mode := modeCrawl
	var err error
	if url != "" {
		mode = modeSingle
		o.logger.Info("scraping single product", zap.String("url", url))
		o.product(ctx, url)
	} else {
		o.logger.Info("started scraping")
		err = o.crawl(ctx)
	}

	final := StateDone
	if err != nil {
		final = StateFailed
	}

	o.mu.Lock()
	o.state = final
	stats := o.stats
	o.mu.Unlock()

	metrics.ObserveRun(o.site.Name(), mode, string(final))
	fields := []zap.Field{
		zap.String("mode", mode),
		zap.String("state", string(final)),
		zap.Int("categories", stats.Categories),
		zap.Int("product_urls", stats.ProductURLs),
		zap.Int("published", stats.Published),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	}
	if err != nil {
		o.logger.Error("scrape failed", append(fields, zap.Error(err))...)
		return final, stats, err
	}
	o.logger.Info("finished scraping", fields...)
	return final, stats, nil
}

func (o *Orchestrator) crawl(ctx context.Context) error {
	categories, err := o.site.Categories(ctx)
	if err != nil {
		return fmt.Errorf("discover categories: %w", err)
	}
	o.update(func(s *RunStats) { s.Categories = len(categories) })
	o.logger.Info("found categories", zap.Int("count", len(categories)))

	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl interrupted: %w", err)
		}
		urls, err := o.site.ProductURLs(ctx, category)
		if err != nil {
			return fmt.Errorf("list products of %s: %w", category, err)
		}
		if limit := o.opts.MaxProductsPerCategory; limit > 0 && len(urls) > limit {
			urls = urls[:limit]
		}
		o.update(func(s *RunStats) { s.ProductURLs += len(urls) })
		o.logger.Debug("category products", zap.String("category", category), zap.Int("count", len(urls)))

		for _, productURL := range urls {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("crawl interrupted: %w", err)
			}
			o.product(ctx, productURL)
		}
	}
	return nil
}

// product fetches, extracts and publishes one product page. It never returns an
// error: the outcome is counted and logged so the crawl can continue.
func (o *Orchestrator) product(ctx context.Context, url string) string {
	outcome := o.publishProduct(ctx, url)
	metrics.ObserveListing(o.site.Name(), outcome)
	o.update(func(s *RunStats) {
		switch outcome {
		case OutcomePublished:
			s.Published++
		case OutcomeSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	})
	return outcome
}

func (o *Orchestrator) publishProduct(ctx context.Context, url string) string {
	logger := o.logger.With(zap.String("url", url))

	resp, err := o.pages.Raw(ctx, url)
	if err != nil {
		logger.Warn("product page unavailable", zap.Error(err))
		return OutcomeFailed
	}
	envelope, ok := o.site.Listing(page.Parse(string(resp.Body)))
	if !ok {
		logger.Warn("skipping product", zap.Error(ErrNoDetails))
		return OutcomeSkipped
	}

	record := PublicationRecord{SourceChannel: o.site.Name(), URL: url}
	if envelope.MainIdentifier != nil {
		record.MainIdentifier = *envelope.MainIdentifier
	}
	if o.opts.Archiver != nil {
		uri, hash, err := o.opts.Archiver.Archive(ctx, o.site.Name(), resp.Body)
		if err != nil {
			logger.Warn("archive failed", zap.Error(err))
		}
		record.ArchiveURI, record.ContentHash = uri, hash
	}

	jobID, err := o.publisher.Publish(ctx, envelope, map[string]string{HeaderSourceChannel: o.site.Name()})
	if err != nil {
		logger.Error("publish failed", zap.Error(err))
		return OutcomeFailed
	}
	logger.Info("published listing", zap.String("job_id", jobID))

	if o.opts.Ledger != nil {
		record.JobID = jobID
		record.PublishedAt = o.opts.Now()
		if err := o.opts.Ledger.RecordPublication(ctx, record); err != nil {
			logger.Warn("ledger write failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	return OutcomePublished
}

func (o *Orchestrator) update(fn func(*RunStats)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.stats)
}
