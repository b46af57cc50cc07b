package recetecom

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
)

const homeHTML = `<html><body>
<nav id="main-menu">
  <a href="/saglik">Sağlık</a>
  <a href="#top">Top</a>
  <a href="/firsatlar/">Fırsatlar</a>
  <a href="https://www.facebook.com/recete">Facebook</a>
  <a href="%s/kozmetik/">Kozmetik</a>
</nav>
<a href="/not-in-menu">Footer</a>
</body></html>`

const categoryHTML = `<html><body>
<div class="pagination-info-bar"><span>%s</span></div>
%s
</body></html>`

const productItem = `<div class="product-item"><a class="image-wrapper" href="%s"><img></a><a class="image-wrapper" href="/ignored"></a></div>`

const productHTML = `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"BreadcrumbList"}</script>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","sku":"RC-1","description":"Günlük vitamin","image":["https://cdn.recete.com/1.jpg"],"category":"Sağlık > Vitamin"}</script>
</head><body>
<script>window.PRODUCT_DATA = []; PRODUCT_DATA.push(JSON.parse('{"name":"Vitamin C","barcode":"8690000000001","brand":"Acme","currency":"TRY","sale_price":"129.90","url":"https://www.recete.com/vitamin-c","category":"Sağlık,Vitamin","category_id":"42","quantity":7}'));</script>
</body></html>`

func categoryPage(count string, hrefs ...string) string {
	items := ""
	for _, h := range hrefs {
		items += fmt.Sprintf(productItem, h)
	}
	return fmt.Sprintf(categoryHTML, count, items)
}

// stubFetcher serves canned bodies keyed by URL; unknown URLs fail with 404.
type stubFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	requests []scraper.FetchRequest
}

func (s *stubFetcher) Fetch(_ context.Context, req scraper.FetchRequest) (scraper.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	body, ok := s.pages[req.URL]
	if !ok {
		return scraper.FetchResponse{}, &scraper.FetchError{
			URL:        req.URL,
			StatusCode: http.StatusNotFound,
			Err:        fmt.Errorf("unexpected status"),
		}
	}
	return scraper.FetchResponse{URL: req.URL, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func (s *stubFetcher) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.URL
	}
	return out
}
