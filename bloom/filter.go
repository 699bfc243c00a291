// Package bloom provides probabilistic visited-URL tracking for page
// walks. A walk that revisits a URL is cycling and should stop.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter tracks visited page URLs.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a filter sized for n expected URLs with the given
// false positive rate. A false positive ends a walk one page early; a
// false negative would let a cycle run, so the filter guarantees none.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Visit marks the URL visited and reports whether it may have been
// visited before.
func (f *Filter) Visit(url string) bool {
	return f.f.TestAndAddString(url)
}

// Visited returns true if the URL might have been visited.
func (f *Filter) Visited(url string) bool {
	return f.f.TestString(url)
}

// EstimatedCount returns the approximate number of visited URLs.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}
