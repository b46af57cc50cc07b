// Package archive stores the raw HTML of published product pages in a blob store,
// keyed by content hash so identical pages collapse onto one object.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
)

const contentType = "text/html; charset=utf-8"

// Archiver writes page bodies under <prefix>/<channel>/<yyyy-mm-dd>/<sha256>.html.
type Archiver struct {
	store  scraper.BlobStore
	prefix string
	now    func() time.Time
}

// Option customizes an Archiver.
type Option func(*Archiver)

// WithClock overrides the time source used for the date partition.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns an Archiver writing into store.
func New(store scraper.BlobStore, prefix string, opts ...Option) *Archiver {
	a := &Archiver{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Archive uploads body and returns the blob URI plus the hex sha256 of the body.
func (a *Archiver) Archive(ctx context.Context, channel string, body []byte) (string, string, error) {
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	key := path.Join(a.prefix, channel, a.now().UTC().Format("2006-01-02"), hash+".html")
	uri, err := a.store.PutObject(ctx, key, contentType, bytes.NewReader(body))
	if err != nil {
		return "", hash, fmt.Errorf("archive %s: %w", key, err)
	}
	return uri, hash, nil
}
