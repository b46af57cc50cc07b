package recetecom

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/metrics"
)

// ProductsPerPage is the listing page size the site paginates with.
const ProductsPerPage = 24

const (
	menuSelector    = "nav#main-menu a[href]"
	countSelector   = "div.pagination-info-bar span"
	productSelector = "div.product-item"
	productAnchor   = "a.image-wrapper"
)

// excluded menu entries are promotional pages, not product categories.
var excluded = map[string]struct{}{
	"firsatlar":     {},
	"kampanyalar":   {},
	"marka-listesi": {},
}

// Categories returns the absolute category URLs linked from the main menu, in menu order.
func (s *Site) Categories(ctx context.Context) ([]string, error) {
	doc, err := s.pages.Document(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("load main menu: %w", err)
	}
	urls := CategoryURLs(s.baseURL, doc.Attrs(menuSelector, "href"))
	metrics.ObserveCategories(Channel, len(urls))
	return urls, nil
}

// ProductURLs walks every listing page of a category and returns the product links found.
// The landing page doubles as page one. Later pages that fail to load are logged and skipped.
func (s *Site) ProductURLs(ctx context.Context, categoryURL string) ([]string, error) {
	landing, err := s.pages.Document(ctx, categoryURL)
	if err != nil {
		return nil, fmt.Errorf("load category %s: %w", categoryURL, err)
	}
	total := ParseProductCount(landing.Text(countSelector))
	pages := PageURLs(categoryURL, total)
	s.logger.Debug("category pagination",
		zap.String("category", categoryURL),
		zap.Int("total_products", total),
		zap.Int("pages", len(pages)),
	)

	found := s.productLinks(landing.Find(productSelector))
	for _, pageURL := range pages[1:] {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("walk category %s: %w", categoryURL, err)
		}
		doc, err := s.pages.Document(ctx, pageURL)
		if err != nil {
			s.logger.Warn("skipping listing page", zap.String("url", pageURL), zap.Error(err))
			continue
		}
		links := s.productLinks(doc.Find(productSelector))
		if len(links) == 0 {
			s.logger.Info("listing page has no products", zap.String("url", pageURL))
		}
		found = append(found, links...)
	}
	return found, nil
}

func (s *Site) productLinks(containers *goquery.Selection) []string {
	var out []string
	containers.Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find(productAnchor).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs, err := resolve(s.baseURL, href)
		if err != nil {
			s.logger.Debug("unresolvable product link", zap.String("href", href), zap.Error(err))
			return
		}
		out = append(out, abs)
	})
	return out
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return b.ResolveReference(ref).String(), nil
}

// CategoryURLs filters menu hrefs down to category pages and makes them absolute.
// Links on other hosts, in-page anchors, query links, protocol-relative links and
// promotional pages are dropped. Order is preserved and duplicates are kept.
func CategoryURLs(base string, hrefs []string) []string {
	base = strings.TrimRight(base, "/")
	host := ""
	if u, err := url.Parse(base); err == nil {
		host = strings.ToLower(u.Host)
	}

	out := make([]string, 0, len(hrefs))
	for _, raw := range hrefs {
		path, ok := categoryPath(raw, host)
		if !ok {
			continue
		}
		out = append(out, base+"/"+path)
	}
	return out
}

func categoryPath(href, host string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "//") {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(href)
		if err != nil || !strings.EqualFold(u.Host, host) {
			return "", false
		}
		if u.RawQuery != "" || u.Fragment != "" || strings.HasSuffix(href, "?") || strings.HasSuffix(href, "#") {
			return "", false
		}
		href = u.EscapedPath()
	}
	path := strings.Trim(href, "/")
	if path == "" || strings.ContainsAny(path, "?#:") {
		return "", false
	}
	if _, skip := excluded[path]; skip {
		return "", false
	}
	return path, true
}

// ParseProductCount reads the leading product count from the pagination banner,
// e.g. "1.250 ürün bulunmaktadır." yields 1250. Missing or non-numeric text yields 0.
func ParseProductCount(text string) int {
	text = strings.TrimSpace(text)
	var digits strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case (r == '.' || r == ',') && digits.Len() > 0:
		default:
			n, _ := strconv.Atoi(digits.String())
			return n
		}
	}
	n, _ := strconv.Atoi(digits.String())
	return n
}

// TotalPages is the number of listing pages for total products, never less than one.
func TotalPages(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + ProductsPerPage - 1) / ProductsPerPage
}

// PageURLs lists every listing page of a category. Page one is the bare category URL.
func PageURLs(categoryURL string, total int) []string {
	n := TotalPages(total)
	urls := make([]string, 0, n)
	urls = append(urls, categoryURL)
	for pg := 2; pg <= n; pg++ {
		urls = append(urls, categoryURL+"?pg="+strconv.Itoa(pg))
	}
	return urls
}
