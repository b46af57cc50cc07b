package scraper

import (
	"context"
	"io"
	"time"

	"github.com/JakeFAU/retail-listing-scraper/internal/listing"
	"github.com/JakeFAU/retail-listing-scraper/internal/page"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// ProxyPool hands out forward proxy addresses. The boolean is false when no proxy is available.
type ProxyPool interface {
	Get() (string, bool)
}

// Publisher pushes listing envelopes onto the work queue and returns the correlation id.
type Publisher interface {
	Publish(ctx context.Context, envelope listing.Envelope, headers map[string]string) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Ledger records every successfully published listing.
type Ledger interface {
	RecordPublication(ctx context.Context, record PublicationRecord) error
}

// Site is the retailer-specific half of a scrape: catalog discovery and detail extraction.
type Site interface {
	Name() string
	Categories(ctx context.Context) ([]string, error)
	ProductURLs(ctx context.Context, categoryURL string) ([]string, error)
	Listing(doc *page.Document) (listing.Envelope, bool)
}

// PublicationRecord is persisted by the Ledger for each published listing.
type PublicationRecord struct {
	JobID          string    `json:"job_id"`
	SourceChannel  string    `json:"source_channel"`
	MainIdentifier string    `json:"main_identifier"`
	URL            string    `json:"url"`
	ArchiveURI     string    `json:"archive_uri"`
	ContentHash    string    `json:"content_hash"`
	PublishedAt    time.Time `json:"published_at"`
}
