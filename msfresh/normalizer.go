// Package msfresh maps the storefront's JSON payloads to product records.
// The backend is undocumented and its response schema has drifted before,
// so field lookups are defensive: each record field has a list of known
// aliases and the first present one wins.
package msfresh

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/msolis/catfetch"
)

// listKeys are the payload keys that have been observed holding the
// product array, in probe order.
var listKeys = []string{"products", "items", "data", "results", "content"}

// containerKeys are intermediate wrappers the product array can hide
// under, one level deep.
var containerKeys = []string{"data", "response", "result", "payload"}

// paginationKeys are the wrappers pagination signals have been observed
// under.
var paginationKeys = []string{"pagination", "pageInfo", "paging", "meta"}

// Ensure Normalizer implements catfetch.Normalizer at compile time.
var _ catfetch.Normalizer = (*Normalizer)(nil)

// Normalizer maps raw storefront payloads to typed product records.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize maps one page payload. Returns EMALFORMED when no product
// list can be located in the payload.
func (n *Normalizer) Normalize(payload []byte) (*catfetch.Page, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, catfetch.Errorf(catfetch.EMALFORMED, "payload is not JSON: %v", err)
	}

	var root map[string]any
	var items []any
	switch v := doc.(type) {
	case []any:
		// A bare array is its own product list.
		items = v
	case map[string]any:
		root = v
		items = findProductList(root)
	}
	if items == nil {
		return nil, catfetch.Errorf(catfetch.EMALFORMED, "no product list found in payload")
	}

	page := &catfetch.Page{}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := recordFromItem(m)
		if rec.Name == "" {
			continue
		}
		page.Records = append(page.Records, rec)
	}

	if root != nil {
		applyPagination(page, root)
	}
	return page, nil
}

// findProductList locates the product array at the top level or one
// container level down.
func findProductList(root map[string]any) []any {
	if items := listAt(root); items != nil {
		return items
	}
	for _, key := range containerKeys {
		if inner, ok := root[key].(map[string]any); ok {
			if items := listAt(inner); items != nil {
				return items
			}
		}
	}
	return nil
}

// listAt probes the known list keys of one object. Only arrays of
// objects qualify; an empty array qualifies too, since an empty catalog
// page is well-formed.
func listAt(m map[string]any) []any {
	for _, key := range listKeys {
		arr, ok := m[key].([]any)
		if !ok {
			continue
		}
		if len(arr) == 0 {
			return arr
		}
		if _, ok := arr[0].(map[string]any); ok {
			return arr
		}
	}
	return nil
}

// recordFromItem maps one product object, keeping the original payload
// in Raw.
func recordFromItem(m map[string]any) *catfetch.ProductRecord {
	rec := &catfetch.ProductRecord{
		ID:               stringField(m, "id", "productId", "sku", "code"),
		Name:             stringField(m, "name", "productName", "title", "description"),
		Price:            priceField(m, "price", "salePrice", "normalPrice", "listPrice"),
		OfferPrice:       priceField(m, "offerPrice", "promoPrice", "specialPrice", "discountPrice"),
		OfferDescription: stringField(m, "offerDescription", "promoDescription", "offer", "promotion"),
		Stock:            intField(m, "stock", "quantity", "available", "stockQuantity"),
		Barcode:          stringField(m, "barcode", "ean", "upc", "gtin"),
		Category:         stringField(m, "category", "categoryName"),
		Subcategory:      stringField(m, "subcategory", "subcategoryName", "subCategory"),
		ImageURL:         stringField(m, "imageUrl", "image", "img", "photoUrl", "thumbnail"),
	}
	if raw, err := json.Marshal(m); err == nil {
		rec.Raw = raw
	}
	return rec
}

// applyPagination scans the known pagination wrappers plus the root
// object itself for the signals the engine is allowed to interpret.
func applyPagination(page *catfetch.Page, root map[string]any) {
	sources := []map[string]any{root}
	for _, key := range paginationKeys {
		if m, ok := root[key].(map[string]any); ok {
			sources = append(sources, m)
		}
	}

	for _, src := range sources {
		if page.TotalCount == nil {
			if n, ok := intValue(src, "totalCount", "total", "totalItems", "totalElements", "recordCount"); ok {
				total := n
				page.TotalCount = &total
			}
		}
		if page.HasMore == nil {
			if b, ok := boolValue(src, "hasNext", "hasMore", "hasNextPage"); ok {
				more := b
				page.HasMore = &more
			} else if cur, ok := intValue(src, "currentPage", "page"); ok {
				if pages, ok := intValue(src, "totalPages", "pageCount"); ok {
					more := cur < pages
					page.HasMore = &more
				}
			}
		}
		if page.NextCursor == "" {
			page.NextCursor = stringField(src, "nextCursor", "cursor", "nextPageToken")
		}
	}
}

// stringField returns the first present alias as a string. Numeric
// values are stringified, since ids and barcodes arrive both ways.
func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// priceField returns the first present alias as a cleaned price string.
func priceField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := cleanPrice(v); s != "" {
				return s
			}
		case float64:
			if v > 0 {
				return fmt.Sprintf("%.2f", v)
			}
		}
	}
	return ""
}

// cleanPrice strips currency markers from a price string.
// The storefront renders prices as "Q12.50" or "Q 1,250.00".
func cleanPrice(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Q")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// intField returns the first present alias as an int, zero when absent.
func intField(m map[string]any, keys ...string) int {
	if n, ok := intValue(m, keys...); ok {
		return n
	}
	return 0
}

// intValue returns the first present alias as an int. Numeric strings
// count; the backend has served totals both ways.
func intValue(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return int(v), true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// boolValue returns the first present alias as a bool.
func boolValue(m map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		if v, ok := m[key].(bool); ok {
			return v, true
		}
	}
	return false, false
}
