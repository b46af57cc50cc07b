// Package collyfetcher implements scraper.Fetcher using gocolly, optionally
// routing each request through a proxy taken from the pool.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/metrics"
	"github.com/JakeFAU/retail-listing-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// RequestsPerSecond caps requests per host; zero means unlimited.
	RequestsPerSecond float64
}

// Fetcher implements scraper.Fetcher using a fresh Colly collector per request.
// Transports are shared: one for direct requests and one cached per proxy address.
type Fetcher struct {
	cfg     Config
	proxies scraper.ProxyPool
	logger  *zap.Logger
	direct  *http.Transport
	limiter *ratelimit.Limiter

	mu      sync.Mutex
	proxied map[string]*http.Transport
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. proxies may be nil, in which case every request is direct.
func New(cfg Config, proxies scraper.ProxyPool, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Fetcher{
		cfg:     cfg,
		proxies: proxies,
		logger:  logger,
		direct:  newHTTPTransport(),
		limiter: ratelimit.New(ratelimit.Config{RPS: cfg.RequestsPerSecond}),
		proxied: make(map[string]*http.Transport),
	}
}

// Fetch executes a single HTTP GET. Any 2xx status is a success. There is no
// retry: a transport failure or non-2xx status is returned as a *scraper.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, request scraper.FetchRequest) (scraper.FetchResponse, error) {
	proxyAddr := ""
	if request.UseProxy && f.proxies != nil {
		if addr, ok := f.proxies.Get(); ok {
			proxyAddr = addr
		}
	}

	var (
		result     scraper.FetchResponse
		fetchErr   error
		statusCode int
	)
	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = f.limiter.Wait(ctx, request.URL)
	}
	var collector *colly.Collector
	if err == nil {
		collector, err = f.buildCollector(proxyAddr)
	}
	if err == nil {
		f.configureCollectorHooks(collector, request, start, &result, &fetchErr, &statusCode)
		err = f.runCollector(ctx, collector, request.URL, &fetchErr)
	}
	if err != nil {
		ferr := &scraper.FetchError{URL: request.URL, Proxy: proxyAddr, StatusCode: statusCode, Err: err}
		f.logger.Error("request failed",
			zap.String("url", request.URL),
			zap.String("proxy", proxyLabel(proxyAddr)),
			zap.Int("status", statusCode),
			zap.Error(err),
		)
		metrics.ObserveFetch(request.URL, "error", 0)
		return scraper.FetchResponse{}, ferr
	}
	result.Proxy = proxyAddr
	metrics.ObserveFetch(request.URL, "success", len(result.Body))
	return result, nil
}

func (f *Fetcher) buildCollector(proxyAddr string) (*colly.Collector, error) {
	collector := colly.NewCollector(colly.Async(false))
	collector.AllowURLRevisit = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	// colly fails anything >= 203; success is decided in OnResponse instead.
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	transport := f.direct
	if proxyAddr != "" {
		t, err := f.proxyTransport(proxyAddr)
		if err != nil {
			return nil, err
		}
		transport = t
	}
	collector.WithTransport(transport)
	return collector, nil
}

func (f *Fetcher) proxyTransport(addr string) (*http.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.proxied[addr]; ok {
		return t, nil
	}
	proxyURL, err := url.Parse(addr)
	if err != nil || proxyURL.Host == "" {
		return nil, fmt.Errorf("invalid proxy address %q", addr)
	}
	t := f.direct.Clone()
	t.Proxy = http.ProxyURL(proxyURL)
	f.proxied[addr] = t
	return t, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request scraper.FetchRequest,
	start time.Time,
	result *scraper.FetchResponse,
	fetchErr *error,
	statusCode *int,
) {
	hooks.OnRequest(func(r *colly.Request) {
		copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = scraper.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
		*statusCode = r.StatusCode
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			*fetchErr = fmt.Errorf("unexpected status %d", r.StatusCode)
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			*statusCode = r.StatusCode
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, target string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func copyHeaders(request scraper.FetchRequest, r *colly.Request) {
	if request.Headers == nil {
		return
	}
	for key, values := range request.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func proxyLabel(addr string) string {
	if addr == "" {
		return "none"
	}
	return addr
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
