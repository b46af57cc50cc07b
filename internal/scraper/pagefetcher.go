package scraper

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JakeFAU/retail-listing-scraper/internal/page"
)

// PageFetcher couples a Fetcher with a site's proxy preference and parses the result.
type PageFetcher struct {
	fetcher Fetcher
	proxied bool
	headers http.Header
}

// NewPageFetcher returns a PageFetcher. When proxied is true every request asks the
// proxy pool for an address.
func NewPageFetcher(fetcher Fetcher, proxied bool) *PageFetcher {
	return &PageFetcher{fetcher: fetcher, proxied: proxied}
}

// WithHeaders returns a copy of p that sends headers with every request.
func (p *PageFetcher) WithHeaders(headers http.Header) *PageFetcher {
	clone := *p
	clone.headers = headers.Clone()
	return &clone
}

// Raw fetches url and returns the response untouched.
func (p *PageFetcher) Raw(ctx context.Context, url string) (FetchResponse, error) {
	resp, err := p.fetcher.Fetch(ctx, FetchRequest{URL: url, UseProxy: p.proxied, Headers: p.headers})
	if err != nil {
		return FetchResponse{}, fmt.Errorf("fetch page: %w", err)
	}
	return resp, nil
}

// Document fetches url and parses the body.
func (p *PageFetcher) Document(ctx context.Context, url string) (*page.Document, error) {
	resp, err := p.Raw(ctx, url)
	if err != nil {
		return nil, err
	}
	return page.Parse(string(resp.Body)), nil
}
