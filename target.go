package catfetch

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Default price bounds applied when the catalog URL carries no explicit
// filter. These mirror the storefront's own defaults.
const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 9999
)

// canonicalParams is the query-parameter subset that partitions catalogs.
// Anything else (tracking params, UI state) is dropped during normalization.
var canonicalParams = map[string]bool{
	"minPrice": true,
	"maxPrice": true,
	"brand":    true,
	"sort":     true,
}

// CatalogTarget identifies a distinct product listing: a normalized catalog
// URL plus the canonical query-parameter subset that partitions catalogs.
// A CatalogTarget is immutable once constructed and serves as the
// configuration cache key.
type CatalogTarget struct {
	// Normalized catalog URL (scheme, host, path, canonical query only).
	URL string `json:"url"`

	// Subcategory identifier extracted from the catalog path segment.
	// Zero when the URL carries no /catalog/<id> segment.
	SubcategoryID int `json:"subcategoryId"`

	// Price bounds from the canonical query, with storefront defaults
	// applied when absent.
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
}

// NewCatalogTarget normalizes a raw catalog URL into a CatalogTarget.
// Returns EINVALID if the URL cannot be parsed or has no host.
func NewCatalogTarget(rawURL string) (*CatalogTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, Errorf(EINVALID, "invalid catalog URL %q: %v", rawURL, err)
	}
	if u.Host == "" {
		return nil, Errorf(EINVALID, "catalog URL %q must include a host", rawURL)
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Keep only canonical query parameters, sorted for a stable key.
	q := u.Query()
	kept := url.Values{}
	for k, vs := range q {
		if canonicalParams[k] && len(vs) > 0 {
			kept.Set(k, vs[0])
		}
	}
	u.RawQuery = encodeSorted(kept)

	t := &CatalogTarget{
		URL:           u.String(),
		SubcategoryID: subcategoryFromPath(u.Path),
		MinPrice:      DefaultMinPrice,
		MaxPrice:      DefaultMaxPrice,
	}
	if v := kept.Get("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			t.MinPrice = f
		}
	}
	if v := kept.Get("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			t.MaxPrice = f
		}
	}
	return t, nil
}

// Key returns the stable cache key for this target.
func (t *CatalogTarget) Key() string {
	return t.URL
}

// Validate returns an error if the target contains invalid fields.
func (t *CatalogTarget) Validate() error {
	if t.URL == "" {
		return Errorf(EINVALID, "catalog target URL required")
	}
	if t.MinPrice > t.MaxPrice {
		return Errorf(EINVALID, "catalog target min price exceeds max price")
	}
	return nil
}

// subcategoryFromPath extracts the numeric id following a "catalog" path
// segment. Returns 0 when no such segment exists.
func subcategoryFromPath(path string) int {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "catalog" && i+1 < len(parts) {
			if id, err := strconv.Atoi(parts[i+1]); err == nil {
				return id
			}
		}
	}
	return 0
}

// encodeSorted encodes query values with keys in sorted order.
// url.Values.Encode already sorts keys; kept explicit for clarity at the
// cache-key boundary.
func encodeSorted(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v.Get(k)))
	}
	return b.String()
}
