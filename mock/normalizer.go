package mock

import "github.com/msolis/catfetch"

var _ catfetch.Normalizer = (*Normalizer)(nil)

// Normalizer is a mock implementation of catfetch.Normalizer.
type Normalizer struct {
	NormalizeFn func(payload []byte) (*catfetch.Page, error)
}

func (n *Normalizer) Normalize(payload []byte) (*catfetch.Page, error) {
	return n.NormalizeFn(payload)
}
