// Package page parses fetched HTML and extracts the typed fragments scrapers need:
// anchors, JSON-LD blocks and the inline PRODUCT_DATA payload.
package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed, queryable HTML page.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw HTML. It never fails: unparseable input
// yields an empty document on which every query finds nothing.
func Parse(raw string) *Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Empty()
	}
	return &Document{doc: doc}
}

// Empty returns a document with no content.
func Empty() *Document {
	return &Document{doc: goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})}
}

// Find runs a CSS selector against the document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Attrs returns the named attribute of every element matching selector, in document order.
func (d *Document) Attrs(selector, attr string) []string {
	var out []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			out = append(out, v)
		}
	})
	return out
}

// Text returns the trimmed text of the first element matching selector.
func (d *Document) Text(selector string) string {
	return strings.TrimSpace(d.doc.Find(selector).First().Text())
}
