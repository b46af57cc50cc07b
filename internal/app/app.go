// Package app initializes and holds long-lived scraper services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/archive"
	"github.com/JakeFAU/retail-listing-scraper/internal/config"
	collyfetcher "github.com/JakeFAU/retail-listing-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/retail-listing-scraper/internal/id/uuid"
	"github.com/JakeFAU/retail-listing-scraper/internal/proxy"
	"github.com/JakeFAU/retail-listing-scraper/internal/publisher"
	amqptransport "github.com/JakeFAU/retail-listing-scraper/internal/publisher/amqp"
	kafkatransport "github.com/JakeFAU/retail-listing-scraper/internal/publisher/kafka"
	memorytransport "github.com/JakeFAU/retail-listing-scraper/internal/publisher/memory"
	pubsubtransport "github.com/JakeFAU/retail-listing-scraper/internal/publisher/pubsub"
	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
	"github.com/JakeFAU/retail-listing-scraper/internal/sites/recetecom"
	"github.com/JakeFAU/retail-listing-scraper/internal/storage/gcs"
	"github.com/JakeFAU/retail-listing-scraper/internal/storage/local"
	memorystorage "github.com/JakeFAU/retail-listing-scraper/internal/storage/memory"
	"github.com/JakeFAU/retail-listing-scraper/internal/storage/postgres"
)

// App holds the shared, long-lived services of one scraper process: the page
// fetcher, the queue publisher and the optional archive and ledger stages.
// Everything it acquires is released by Close.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	fetcher   scraper.Fetcher
	publisher *publisher.Publisher
	archiver  scraper.Archiver
	ledger    scraper.Ledger
	registry  *scraper.Registry

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// NewRegistry returns the registry of every source this binary can scrape.
func NewRegistry() *scraper.Registry {
	reg := scraper.NewRegistry()
	reg.Register(recetecom.Channel, recetecom.Factory)
	return reg
}

// New acquires the services described by cfg. It fails fast: on any error the
// services acquired so far are released before returning.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, registry: NewRegistry()}
	logger.Info("initializing application services")

	pool := proxy.NewRoundRobin(cfg.Proxy.List)
	a.fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:         cfg.HTTP.UserAgent,
		RespectRobots:     cfg.HTTP.RespectRobots,
		Timeout:           cfg.RequestTimeout(),
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
	}, pool, logger)
	logger.Info("page fetcher ready", zap.Int("proxies", pool.Len()))

	if err := a.initQueue(ctx); err != nil {
		a.closeQuietly()
		return nil, err
	}
	if err := a.initArchive(ctx); err != nil {
		a.closeQuietly()
		return nil, err
	}
	if err := a.initLedger(ctx); err != nil {
		a.closeQuietly()
		return nil, err
	}

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) initQueue(ctx context.Context) error {
	var (
		transport publisher.Transport
		err       error
	)
	q := a.cfg.Queue
	switch q.Provider {
	case config.QueueAMQP:
		a.logger.Info("connecting to rabbitmq", zap.String("host", q.AMQP.Host), zap.String("vhost", q.AMQP.Vhost))
		transport, err = amqptransport.Dial(amqptransport.Config{
			Host:     q.AMQP.Host,
			Port:     q.AMQP.Port,
			Username: q.AMQP.Username,
			Password: q.AMQP.Password,
			Vhost:    q.AMQP.Vhost,
		}, a.logger)
	case config.QueueKafka:
		a.logger.Info("using kafka transport", zap.Strings("brokers", q.Kafka.Brokers), zap.String("topic", q.Kafka.Topic))
		transport, err = kafkatransport.New(q.Kafka.Brokers, q.Kafka.Topic)
	case config.QueuePubSub:
		a.logger.Info("connecting to pubsub", zap.String("topic", q.PubSub.TopicName))
		transport, err = pubsubtransport.New(ctx, q.PubSub.ProjectID, q.PubSub.TopicName, a.logger)
	case config.QueueMemory:
		a.logger.Info("using in-memory transport; messages are not delivered")
		transport = memorytransport.New()
	default:
		return fmt.Errorf("unknown queue provider: %s", q.Provider)
	}
	if err != nil {
		return fmt.Errorf("initialize queue: %w", err)
	}
	a.publisher = publisher.New(transport, uuid.New(), a.logger)
	a.closers = append(a.closers, namedCloser{name: "queue", close: a.publisher.Close})
	return nil
}

func (a *App) initArchive(ctx context.Context) error {
	var store scraper.BlobStore
	ac := a.cfg.Archive
	switch ac.Provider {
	case config.ArchiveNone, "":
		return nil
	case config.ArchiveMemory:
		store = memorystorage.NewBlobStore()
	case config.ArchiveLocal:
		s, err := local.New(local.Config{BaseDir: ac.LocalDir})
		if err != nil {
			return fmt.Errorf("initialize local archive: %w", err)
		}
		store = s
	case config.ArchiveGCS:
		s, closeFn, err := gcs.Open(ctx, gcs.Config{Bucket: ac.GCSBucket})
		if err != nil {
			return fmt.Errorf("initialize gcs archive: %w", err)
		}
		a.closers = append(a.closers, namedCloser{name: "gcs", close: closeFn})
		store = s
	default:
		return fmt.Errorf("unknown archive provider: %s", ac.Provider)
	}
	a.logger.Info("archiving product pages", zap.String("provider", ac.Provider), zap.String("prefix", ac.Prefix))
	a.archiver = archive.New(store, ac.Prefix)
	return nil
}

func (a *App) initLedger(ctx context.Context) error {
	lc := a.cfg.Ledger
	if lc.DSN == "" {
		return nil
	}
	a.logger.Info("connecting to ledger database", zap.String("table", lc.Table))
	store, err := postgres.NewLedgerStore(ctx, postgres.LedgerStoreConfig{
		DSN:      lc.DSN,
		Table:    lc.Table,
		MaxConns: lc.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	a.ledger = store
	a.closers = append(a.closers, namedCloser{name: "ledger", close: func() error {
		store.Close()
		return nil
	}})
	return nil
}

// Config returns the configuration the services were built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Fetcher returns the shared page fetcher.
func (a *App) Fetcher() scraper.Fetcher {
	return a.fetcher
}

// Publisher returns the queue publisher.
func (a *App) Publisher() scraper.Publisher {
	return a.publisher
}

// Registry returns the source registry.
func (a *App) Registry() *scraper.Registry {
	return a.registry
}

// Orchestrator builds the Site for channel and wires it to the shared services.
func (a *App) Orchestrator(channel string, maxPerCategory int) (*scraper.Orchestrator, error) {
	src := a.cfg.Source(channel)
	siteCfg := scraper.SiteConfig{BaseURL: src.BaseURL, Proxied: src.Proxied, Headers: src.RequestHeaders()}
	site, err := a.registry.Build(channel, a.fetcher, siteCfg, a.logger)
	if err != nil {
		return nil, err
	}
	opts := scraper.Options{
		MaxProductsPerCategory: maxPerCategory,
		Archiver:               a.archiver,
		Ledger:                 a.ledger,
	}
	return scraper.NewOrchestrator(site, siteCfg.Pages(a.fetcher), a.publisher, a.logger, opts), nil
}

// Close releases every acquired service in reverse order of acquisition.
func (a *App) Close() error {
	a.logger.Info("shutting down application services")
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("error closing service", zap.String("service", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) closeQuietly() {
	_ = a.Close()
}
