package scraper

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SiteConfig carries the per-source settings a Factory needs.
type SiteConfig struct {
	// BaseURL overrides the storefront root; empty uses the site default.
	BaseURL string
	// Proxied routes every request of the source through the proxy pool.
	Proxied bool
	// Headers are sent with every request of the source.
	Headers http.Header
}

// Pages returns the PageFetcher a source configured by c fetches through.
func (c SiteConfig) Pages(fetcher Fetcher) *PageFetcher {
	return NewPageFetcher(fetcher, c.Proxied).WithHeaders(c.Headers)
}

// Factory builds a Site around a PageFetcher already configured for the source.
type Factory func(pages *PageFetcher, cfg SiteConfig, logger *zap.Logger) Site

// Registry maps source channel names to site factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name. Names are case-insensitive.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(strings.TrimSpace(name))] = factory
}

// Names returns the registered channel names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the Site registered under name.
func (r *Registry) Build(name string, fetcher Fetcher, cfg SiteConfig, logger *zap.Logger) (Site, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownSourceError{Name: name, Known: r.Names()}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return factory(cfg.Pages(fetcher), cfg, logger), nil
}
