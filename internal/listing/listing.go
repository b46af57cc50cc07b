// Package listing holds the canonical product record and the logic that merges
// the inline PRODUCT_DATA payload with the JSON-LD Product block.
package listing

import (
	"strings"
)

// SourceTypeRetailer is the source_type of every envelope produced by a retailer scraper.
const SourceTypeRetailer = "retailer"

// ProductDetails is the canonical merged record. Absent fields serialize as null.
// PriceAmount, Stock, ImageURLs and CategoryPath carry whatever shape the page
// used when it cannot be normalized; a present value is never dropped.
type ProductDetails struct {
	Name           *string `json:"name"`
	SKU            *string `json:"product_sku"`
	Barcode        *string `json:"barcode"`
	Brand          *string `json:"brand"`
	Description    *string `json:"description"`
	PriceCurrency  *string `json:"price_currency"`
	PriceAmount    any     `json:"price_amount"`
	URL            *string `json:"url"`
	ImageURLs      any     `json:"image_urls"`
	CategoryPath   any     `json:"category_path"`
	Category       *string `json:"category"`
	RootCategoryID *string `json:"root_category_id"`
	SubCategoryID  *string `json:"sub_category_id"`
	Stock          any     `json:"stock"`
}

// Envelope is the unit published to the queue.
type Envelope struct {
	SourceChannel  string         `json:"source_channel"`
	SourceType     string         `json:"source_type"`
	MainIdentifier *string        `json:"main_identifier"`
	Listing        ProductDetails `json:"listing"`
}

// NewEnvelope wraps details for publication, keyed by SKU.
func NewEnvelope(channel string, details ProductDetails) Envelope {
	return Envelope{
		SourceChannel:  channel,
		SourceType:     SourceTypeRetailer,
		MainIdentifier: details.SKU,
		Listing:        details,
	}
}

// Extract merges the inline payload and the first JSON-LD Product block.
// It returns false when either source is missing or the inline payload is empty;
// no partial record is built.
func Extract(inline map[string]any, jsonLD []map[string]any) (*ProductDetails, bool) {
	if len(inline) == 0 {
		return nil, false
	}
	product, ok := FirstProduct(jsonLD)
	if !ok {
		return nil, false
	}
	return &ProductDetails{
		Name:          stringField(inline, "name"),
		SKU:           stringField(product, "sku"),
		Barcode:       stringField(inline, "barcode"),
		Brand:         stringField(inline, "brand"),
		Description:   stringField(product, "description"),
		PriceCurrency: stringField(inline, "currency"),
		PriceAmount:   numberField(inline, "sale_price"),
		URL:           stringField(inline, "url"),
		ImageURLs:     imageURLs(product["image"]),
		CategoryPath:  rawField(product, "category"),
		Category:      LastCategory(stringField(inline, "category")),
		SubCategoryID: stringField(inline, "category_id"),
		Stock:         numberField(inline, "quantity"),
	}, true
}

// FirstProduct returns the first block whose @type is Product.
func FirstProduct(blocks []map[string]any) (map[string]any, bool) {
	for _, block := range blocks {
		if isProduct(block["@type"]) {
			return block, true
		}
	}
	return nil, false
}

// LastCategory returns the last comma-separated segment, or the whole string when there is no comma.
func LastCategory(category *string) *string {
	if category == nil {
		return nil
	}
	parts := strings.Split(*category, ",")
	last := parts[len(parts)-1]
	return &last
}

func isProduct(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Product"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

// imageURLs flattens the JSON-LD image property into a list of URLs. Shapes it
// cannot read completely are returned as decoded.
func imageURLs(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case map[string]any:
		if u := imageObjectURL(t); u != "" {
			return []string{u}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch img := item.(type) {
			case string:
				out = append(out, img)
			case map[string]any:
				u := imageObjectURL(img)
				if u == "" {
					return v
				}
				out = append(out, u)
			default:
				return v
			}
		}
		return out
	}
	return v
}

func imageObjectURL(obj map[string]any) string {
	for _, key := range []string{"url", "contentUrl"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
