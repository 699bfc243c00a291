// Package discover provides configuration discovery for catalog targets.
// It generates candidate parameter configurations from an observed request
// template and probes them in order until one returns the complete catalog.
package discover

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/msolis/catfetch"
)

// DefaultPageSizes is the page-size sweep tried after the fetch-everything
// variants are exhausted, largest first.
var DefaultPageSizes = []int{9999, 1000, 500, 100}

// Generator produces an ordered, duplicate-free sequence of configuration
// candidates for a target. Ordering is by estimated likelihood of success:
// the aggressive "fetch everything" variants come first because a single
// override flag commonly unlocks full results on storefront APIs; the
// page-size sweep is a later fallback. Generate has no side effects.
type Generator struct {
	// PageSizes overrides the page-size sweep. Defaults to DefaultPageSizes.
	PageSizes []int
}

// Generate derives the candidate sequence from an observed template.
// The template itself is never mutated; every candidate carries a derived
// copy. Identical candidates are emitted once.
func (g *Generator) Generate(tmpl *catfetch.RequestTemplate, target *catfetch.CatalogTarget) []*catfetch.ConfigCandidate {
	subcategory := target.SubcategoryID
	if subcategory == 0 {
		if v, ok := tmpl.Param("subcategoryId"); ok {
			subcategory = asInt(v)
		}
	}

	base := tmpl.
		WithParam("minPrice", target.MinPrice).
		WithParam("maxPrice", target.MaxPrice)

	withSub := func(t *catfetch.RequestTemplate) *catfetch.RequestTemplate {
		if subcategory > 0 {
			return t.WithParam("subcategoryId", subcategory)
		}
		return t.WithoutParam("subcategoryId")
	}

	variants := []*catfetch.ConfigCandidate{
		{Label: "all-flag", Template: withSub(base.WithParam("all", true).WithParam("type", 0))},
		{Label: "type-0-subcategory", Template: withSub(base.WithParam("type", 0))},
		{Label: "subcategory-only", Template: withSub(base.WithoutParam("type"))},
		{Label: "type-0", Template: base.WithParam("type", 0).WithoutParam("subcategoryId")},
		{Label: "bare", Template: base.WithoutParam("type").WithoutParam("subcategoryId")},
	}

	sizes := g.PageSizes
	if len(sizes) == 0 {
		sizes = DefaultPageSizes
	}
	for _, size := range sizes {
		variants = append(variants, &catfetch.ConfigCandidate{
			Label:    "page-size-" + strconv.Itoa(size),
			Template: withSub(base.WithParam("type", 0).WithParam("pageSize", size)),
			PageSize: size,
		})
	}

	// Variants collapse into each other when the target has no
	// subcategory; keep the first occurrence only.
	seen := make(map[uint64]bool, len(variants))
	out := variants[:0]
	for _, c := range variants {
		fp := fingerprint(c.Template)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, c)
	}
	return out
}

// fingerprint returns a stable hash of the request a template describes.
func fingerprint(t *catfetch.RequestTemplate) uint64 {
	b, err := json.Marshal(struct {
		Method string            `json:"method"`
		URL    string            `json:"url"`
		Params []catfetch.Param  `json:"params"`
		Header map[string]string `json:"headers"`
	}{t.Method, t.URL, t.Params, t.Headers})
	if err != nil {
		return 0
	}
	return xxhash.Sum64(b)
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
