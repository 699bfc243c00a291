package catfetch

import "context"

// Classification is the outcome category of a single probe.
type Classification string

// Probe classifications.
const (
	// CompleteCatalog means the response is well-formed and its observed
	// total satisfies the completeness heuristic for the target.
	CompleteCatalog Classification = "complete"

	// PartialCatalog means the response is well-formed but below the
	// expected minimum. Not an error; it signals "try a more aggressive
	// candidate".
	PartialCatalog Classification = "partial"

	// Malformed means the response body could not be mapped by the
	// record normalizer.
	Malformed Classification = "malformed"

	// TransportError means a network failure, non-2xx status, or timeout.
	TransportError Classification = "transport_error"
)

// ProbeResult is the outcome of issuing one ConfigCandidate.
// Every outcome is represented here; a Prober never panics and returns a
// Go error only for context cancellation or programmer mistakes.
type ProbeResult struct {
	Classification Classification

	// ItemCount is the number of records observed in the response.
	ItemCount int

	// Page is the normalized payload. Nil for Malformed and
	// TransportError outcomes.
	Page *Page

	// Raw is the response body, kept only long enough to normalize and
	// fingerprint. Nil for TransportError outcomes.
	Raw []byte

	// Err carries the underlying cause for Malformed and TransportError
	// outcomes.
	Err error
}

// Prober issues a single HTTP request for a candidate configuration and
// classifies the response. Retries are the pagination driver's
// responsibility, not the prober's.
type Prober interface {
	Probe(ctx context.Context, cand *ConfigCandidate) (*ProbeResult, error)
}
