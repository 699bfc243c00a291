// Package goquery provides a DOM-scraping fallback for catalogs whose
// backing API cannot be discovered: it walks the rendered listing pages
// and extracts product cards directly. Slower and lossier than the API
// path, but it never returns a silent empty result for a server-rendered
// storefront.
package goquery

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/bloom"
)

// DefaultMaxPages bounds how many listing pages the fallback will walk.
// Protects against storefronts whose "next" link cycles.
const DefaultMaxPages = 50

// cardSelectors match the product card containers observed across
// storefront themes, in specificity order.
var cardSelectors = []string{
	"[data-product-id]",
	".product-card",
	"li.product",
	"div.product-item",
	"[class*='product']",
}

// nextLabels are anchor texts that mean "next page" on the storefronts
// this fallback targets.
var nextLabels = map[string]bool{
	"next":      true,
	"siguiente": true,
	"›":         true,
	"»":         true,
}

// Fetcher retrieves the HTML of one listing page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Fallback walks listing pages and extracts product cards.
type Fallback struct {
	fetcher  Fetcher
	maxPages int
}

// Option configures a Fallback.
type Option func(*Fallback)

// WithFetcher overrides the page fetcher. Defaults to a plain HTTP GET.
func WithFetcher(f Fetcher) Option {
	return func(fb *Fallback) {
		fb.fetcher = f
	}
}

// WithMaxPages bounds the page walk. Defaults to DefaultMaxPages.
func WithMaxPages(n int) Option {
	return func(fb *Fallback) {
		fb.maxPages = n
	}
}

// New creates a Fallback.
func New(opts ...Option) *Fallback {
	fb := &Fallback{
		fetcher:  &httpFetcher{client: &http.Client{Timeout: 30 * time.Second}},
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(fb)
	}
	return fb
}

// Extract walks the target's listing pages and returns the deduplicated
// product records found in the DOM. Returns ENOTFOUND when the first
// page contains no recognizable product cards.
func (f *Fallback) Extract(ctx context.Context, target *catfetch.CatalogTarget) ([]*catfetch.ProductRecord, error) {
	seen := make(map[string]bool)
	visited := bloom.NewFilter(10000, 0.01)

	var records []*catfetch.ProductRecord
	pageURL := target.URL
	for page := 0; page < f.maxPages && pageURL != ""; page++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if visited.Visit(pageURL) {
			break
		}

		html, err := f.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			// Later pages failing ends the walk with what we have.
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, catfetch.Errorf(catfetch.EMALFORMED, "parsing listing page: %v", err)
		}

		found := extractCards(doc)
		if page == 0 && len(found) == 0 {
			return nil, catfetch.Errorf(catfetch.ENOTFOUND, "no product cards found at %s", pageURL)
		}
		added := 0
		for _, rec := range found {
			if seen[rec.Key()] {
				continue
			}
			seen[rec.Key()] = true
			records = append(records, rec)
			added++
		}
		// A page of pure repeats means the next link is cycling.
		if added == 0 {
			break
		}

		pageURL = nextPageURL(doc, pageURL)
	}
	return records, nil
}

// extractCards returns the product records visible on one page. The
// first card selector that matches anything wins; mixing selectors
// double-counts nested containers.
func extractCards(doc *goquery.Document) []*catfetch.ProductRecord {
	for _, sel := range cardSelectors {
		var records []*catfetch.ProductRecord
		doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
			if rec := recordFromCard(card); rec != nil {
				records = append(records, rec)
			}
		})
		if len(records) > 0 {
			return records
		}
	}
	return nil
}

// recordFromCard maps one card element, nil when no name is present.
func recordFromCard(card *goquery.Selection) *catfetch.ProductRecord {
	name := firstText(card, ".product-name", ".name", ".title", "h2", "h3")
	if name == "" {
		return nil
	}
	rec := &catfetch.ProductRecord{
		Name:  name,
		Price: cleanPrice(firstText(card, ".offer-price", ".sale-price", "[class*='price']")),
	}
	if id, ok := card.Attr("data-product-id"); ok {
		rec.ID = id
	}
	if barcode, ok := card.Attr("data-barcode"); ok {
		rec.Barcode = barcode
	}
	if img, ok := card.Find("img").First().Attr("src"); ok {
		rec.ImageURL = img
	}
	return rec
}

// firstText returns the trimmed text of the first selector that matches.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// cleanPrice strips currency markers from a displayed price.
func cleanPrice(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Q")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// nextPageURL finds the next-page link and resolves it against the
// current page. Empty when the page has no next link.
func nextPageURL(doc *goquery.Document, current string) string {
	href, ok := doc.Find("a[rel='next']").First().Attr("href")
	if !ok {
		doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			label := strings.ToLower(strings.TrimSpace(a.Text()))
			if nextLabels[label] {
				href, ok = a.Attr("href")
				return !ok
			}
			return true
		})
	}
	if !ok || href == "" {
		return ""
	}

	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	next, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(next).String()
}

// httpFetcher retrieves pages with a plain GET. Sufficient for
// server-rendered storefronts; client-rendered ones need the browser
// observer and the API path.
type httpFetcher struct {
	client *http.Client
}

func (f *httpFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", catfetch.Errorf(catfetch.EINVALID, "building page request: %v", err)
	}
	req.Header.Set("User-Agent", catfetch.DefaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", catfetch.Errorf(catfetch.EUNAVAILABLE, "fetching %s: %v", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", catfetch.Errorf(catfetch.EUNAVAILABLE, "HTTP %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", catfetch.Errorf(catfetch.EUNAVAILABLE, "reading %s: %v", pageURL, err)
	}
	return string(body), nil
}
