// Package recetecom scrapes product listings from recete.com.
package recetecom

import (
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/listing"
	"github.com/JakeFAU/retail-listing-scraper/internal/page"
	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
)

const (
	// Channel is the source channel stamped on every envelope.
	Channel = "recetecom"
	// DefaultBaseURL is the storefront root.
	DefaultBaseURL = "https://www.recete.com"
)

// Site implements scraper.Site for recete.com.
type Site struct {
	baseURL string
	pages   *scraper.PageFetcher
	logger  *zap.Logger
}

// New returns a Site rooted at baseURL, or DefaultBaseURL when empty.
func New(baseURL string, pages *scraper.PageFetcher, logger *zap.Logger) *Site {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Site{
		baseURL: strings.TrimRight(baseURL, "/"),
		pages:   pages,
		logger:  logger.With(zap.String("site", Channel)),
	}
}

// Factory adapts New to the scraper registry.
func Factory(pages *scraper.PageFetcher, cfg scraper.SiteConfig, logger *zap.Logger) scraper.Site {
	return New(cfg.BaseURL, pages, logger)
}

// Name returns the source channel.
func (s *Site) Name() string {
	return Channel
}

// Listing extracts the product envelope from a product page. It reports false
// when either the inline payload or the JSON-LD Product block is missing.
func (s *Site) Listing(doc *page.Document) (listing.Envelope, bool) {
	inline, _ := doc.InlineProduct(s.logger)
	details, ok := listing.Extract(inline, doc.JSONLDBlocks(s.logger))
	if !ok {
		return listing.Envelope{}, false
	}
	return listing.NewEnvelope(Channel, *details), true
}
