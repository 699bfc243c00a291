// Package http provides the HTTP-based probe executor. A probe issues
// exactly one network request for a candidate configuration and classifies
// the response; retries belong to the pagination driver.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/msolis/catfetch"
)

// DefaultProbeTimeout bounds a single probe request.
const DefaultProbeTimeout = 30 * time.Second

// DefaultCompleteThreshold is the item count at or above which a response
// without a reported total is treated as a complete catalog. The backend's
// "fetch everything" semantics are not documented, so the threshold is
// configurable and should be validated empirically per deployment.
const DefaultCompleteThreshold = 50

// Ensure Prober implements catfetch.Prober at compile time.
var _ catfetch.Prober = (*Prober)(nil)

// Prober issues single classified requests for candidate configurations.
type Prober struct {
	client     *http.Client
	normalizer catfetch.Normalizer
	limiter    Limiter
	timeout    time.Duration
	threshold  int
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout sets the per-request timeout.
// Defaults to DefaultProbeTimeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.timeout = d
	}
}

// WithCompleteThreshold sets the item count treated as complete when the
// payload reports no total. Defaults to DefaultCompleteThreshold.
func WithCompleteThreshold(n int) Option {
	return func(p *Prober) {
		p.threshold = n
	}
}

// WithLimiter sets a per-host rate limiter applied before each request.
func WithLimiter(l Limiter) Option {
	return func(p *Prober) {
		p.limiter = l
	}
}

// WithClient sets the underlying HTTP client. Used by tests to install a
// mock transport.
func WithClient(c *http.Client) Option {
	return func(p *Prober) {
		p.client = c
	}
}

// NewProber creates a Prober that classifies responses using the given
// normalizer.
func NewProber(normalizer catfetch.Normalizer, opts ...Option) *Prober {
	p := &Prober{
		normalizer: normalizer,
		timeout:    DefaultProbeTimeout,
		threshold:  DefaultCompleteThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	return p
}

// Probe issues one request for the candidate and classifies the response.
// Network failures, non-2xx statuses, timeouts, and unmappable payloads
// are all reported inside the ProbeResult; the returned error is non-nil
// only for an invalid candidate or a canceled parent context.
func (p *Prober) Probe(ctx context.Context, cand *catfetch.ConfigCandidate) (*catfetch.ProbeResult, error) {
	if err := cand.Validate(); err != nil {
		return nil, err
	}

	req, err := p.buildRequest(ctx, cand.Template)
	if err != nil {
		return nil, err
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, req.URL.Host); err != nil {
			return nil, err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Do(req.WithContext(reqCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &catfetch.ProbeResult{
			Classification: catfetch.TransportError,
			Err:            catfetch.Errorf(catfetch.EUNAVAILABLE, "request failed: %v", err),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &catfetch.ProbeResult{
			Classification: catfetch.TransportError,
			Err:            catfetch.Errorf(catfetch.EUNAVAILABLE, "HTTP %d for %s", resp.StatusCode, req.URL),
		}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &catfetch.ProbeResult{
			Classification: catfetch.TransportError,
			Err:            catfetch.Errorf(catfetch.EUNAVAILABLE, "reading response body: %v", err),
		}, nil
	}

	page, err := p.normalizer.Normalize(body)
	if err != nil {
		return &catfetch.ProbeResult{
			Classification: catfetch.Malformed,
			Raw:            body,
			Err:            err,
		}, nil
	}

	result := &catfetch.ProbeResult{
		ItemCount: len(page.Records),
		Page:      page,
		Raw:       body,
	}
	result.Classification = p.classify(cand, page)
	return result, nil
}

// classify applies the completeness heuristic: a reported total is
// compared directly; otherwise the candidate's expected total, and
// finally the configured threshold, decide.
func (p *Prober) classify(cand *catfetch.ConfigCandidate, page *catfetch.Page) catfetch.Classification {
	n := len(page.Records)
	if page.TotalCount != nil {
		// A reported total of zero with no records is a legitimately
		// empty catalog, not a partial one.
		if n >= *page.TotalCount {
			return catfetch.CompleteCatalog
		}
		return catfetch.PartialCatalog
	}
	if cand.ExpectedTotal > 0 {
		if n >= cand.ExpectedTotal {
			return catfetch.CompleteCatalog
		}
		return catfetch.PartialCatalog
	}
	if n >= p.threshold {
		return catfetch.CompleteCatalog
	}
	return catfetch.PartialCatalog
}

// buildRequest materializes a template into an HTTP request: parameter
// slots become a JSON body for POST-style templates and query parameters
// otherwise. Captured headers are carried forward.
func (p *Prober) buildRequest(ctx context.Context, tmpl *catfetch.RequestTemplate) (*http.Request, error) {
	var req *http.Request
	var err error

	switch tmpl.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		body := make(map[string]any, len(tmpl.Params))
		for _, param := range tmpl.Params {
			body[param.Name] = param.Value
		}
		encoded, merr := json.Marshal(body)
		if merr != nil {
			return nil, catfetch.Errorf(catfetch.EINVALID, "encoding request body: %v", merr)
		}
		req, err = http.NewRequestWithContext(ctx, tmpl.Method, tmpl.URL, bytes.NewReader(encoded))
	default:
		u, perr := url.Parse(tmpl.URL)
		if perr != nil {
			return nil, catfetch.Errorf(catfetch.EINVALID, "invalid template URL %q: %v", tmpl.URL, perr)
		}
		q := u.Query()
		for _, param := range tmpl.Params {
			q.Set(param.Name, fmt.Sprint(param.Value))
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, tmpl.Method, u.String(), nil)
	}
	if err != nil {
		return nil, catfetch.Errorf(catfetch.EINVALID, "building request: %v", err)
	}

	for k, v := range tmpl.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", catfetch.DefaultUserAgent)
	}
	return req, nil
}
