package page

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const inlineMarker = "PRODUCT_DATA.push"

var inlineProductPattern = regexp.MustCompile(`(?s)PRODUCT_DATA\.push\(JSON\.parse\('(\{.*?\})'\)\);`)

// JSONLDBlocks decodes every application/ld+json script on the page.
// Blocks that are not valid JSON are logged and skipped. Top-level arrays are
// flattened into their object members.
func (d *Document) JSONLDBlocks(logger *zap.Logger) []map[string]any {
	var blocks []map[string]any
	d.doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			logger.Warn("skipping malformed JSON-LD block", zap.Int("index", i), zap.Error(err))
			return
		}
		switch v := decoded.(type) {
		case map[string]any:
			blocks = append(blocks, v)
		case []any:
			for _, item := range v {
				if obj, ok := item.(map[string]any); ok {
					blocks = append(blocks, obj)
				}
			}
		}
	})
	return blocks
}

// InlineProduct returns the object pushed by the first
// PRODUCT_DATA.push(JSON.parse('{...}')) script. Later matches are ignored.
func (d *Document) InlineProduct(logger *zap.Logger) (map[string]any, bool) {
	var (
		result map[string]any
		found  bool
	)
	d.doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content := s.Text()
		if !strings.Contains(content, inlineMarker) {
			return true
		}
		match := inlineProductPattern.FindStringSubmatch(content)
		if match == nil {
			return true
		}
		payload := stripControl(unescapeJS(match[1]))
		var obj map[string]any
		if err := json.Unmarshal([]byte(payload), &obj); err != nil {
			logger.Warn("skipping malformed PRODUCT_DATA payload", zap.Error(err))
			return false
		}
		result, found = obj, true
		return false
	})
	return result, found
}
