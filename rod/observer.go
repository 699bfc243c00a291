// Package rod observes client traffic using Chrome browser automation. An
// observation session loads a catalog page in a headless browser, intercepts
// the XHR/fetch requests the storefront issues to its own backend, and
// distills the most catalog-like request into a reusable template.
package rod

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/msolis/catfetch"
)

// DefaultCaptureWindow is how long an observation session keeps collecting
// background requests after the page has finished loading. Storefronts fire
// their product queries shortly after load, but lazy frameworks can delay
// them by several seconds.
const DefaultCaptureWindow = 10 * time.Second

// Ensure Observer implements catfetch.Observer at compile time.
var _ catfetch.Observer = (*Observer)(nil)

// Observer learns request templates by watching a real page session.
// Observer is safe for concurrent use by multiple goroutines.
type Observer struct {
	manager       *BrowserManager
	ownsManager   bool
	captureWindow time.Duration
}

// Option configures an Observer.
type Option func(*Observer)

// WithCaptureWindow sets how long to collect background requests after page
// load. Defaults to DefaultCaptureWindow.
func WithCaptureWindow(d time.Duration) Option {
	return func(o *Observer) {
		o.captureWindow = d
	}
}

// WithBrowserManager uses an existing BrowserManager instead of launching a
// dedicated browser. The caller retains ownership and must close the manager.
func WithBrowserManager(bm *BrowserManager) Option {
	return func(o *Observer) {
		o.manager = bm
		o.ownsManager = false
	}
}

// NewObserver creates an Observer. Unless WithBrowserManager is given, a
// headless Chrome browser is launched and owned by the Observer; Close must
// be called when the Observer is no longer needed.
func NewObserver(opts ...Option) (*Observer, error) {
	o := &Observer{
		ownsManager:   true,
		captureWindow: DefaultCaptureWindow,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.manager == nil {
		bm, err := NewBrowserManager()
		if err != nil {
			return nil, catfetch.Errorf(catfetch.EUNAVAILABLE, "launching observation browser: %v", err)
		}
		o.manager = bm
	}
	return o, nil
}

// Observe loads the target page, intercepts the storefront's own backend
// requests, and returns the best catalog-like one as a template. Returns
// ENOTFOUND when the page issued no recognizable catalog request within the
// capture window.
func (o *Observer) Observe(ctx context.Context, target *catfetch.CatalogTarget) (*catfetch.RequestTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := o.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, catfetch.Errorf(catfetch.EUNAVAILABLE, "opening page: %v", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	captures := make(chan *capture, 32)
	handler := func(h *rod.Hijack) {
		c := captureFromHijack(h)
		h.ContinueRequest(&proto.FetchContinueRequest{})
		if c == nil {
			return
		}
		select {
		case captures <- c:
		default: // capture buffer full, drop
		}
	}

	router := page.HijackRequests()
	if err := router.Add("*", proto.NetworkResourceTypeXHR, handler); err != nil {
		return nil, catfetch.Errorf(catfetch.EUNAVAILABLE, "installing request interceptor: %v", err)
	}
	if err := router.Add("*", proto.NetworkResourceTypeFetch, handler); err != nil {
		return nil, catfetch.Errorf(catfetch.EUNAVAILABLE, "installing request interceptor: %v", err)
	}
	go router.Run()
	defer router.Stop()

	if err := page.Navigate(target.URL); err != nil {
		return nil, catfetch.Errorf(catfetch.EUNAVAILABLE, "navigating to %s: %v", target.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, catfetch.Errorf(catfetch.EUNAVAILABLE, "waiting for page load: %v", err)
	}

	best, err := o.collect(ctx, captures)
	if err != nil {
		return nil, err
	}
	o.manager.IncrementSessionCount()
	if best == nil {
		return nil, catfetch.Errorf(catfetch.ENOTFOUND, "no catalog API request observed for %s", target.URL)
	}
	return templateFromCapture(best)
}

// Close releases browser resources if the Observer owns them.
func (o *Observer) Close() error {
	if !o.ownsManager {
		return nil
	}
	return o.manager.Close()
}

// collect drains captures until the window expires, keeping the highest
// scored one. A context cancellation ends collection early.
func (o *Observer) collect(ctx context.Context, captures <-chan *capture) (*capture, error) {
	window := time.NewTimer(o.captureWindow)
	defer window.Stop()

	var best *capture
	bestScore := 0
	for {
		select {
		case <-ctx.Done():
			if best != nil {
				return best, nil
			}
			return nil, ctx.Err()
		case c := <-captures:
			if s := scoreCapture(c); s > bestScore {
				best, bestScore = c, s
			}
		case <-window.C:
			return best, nil
		}
	}
}

// capture is a single intercepted background request.
type capture struct {
	method  string
	url     *url.URL
	headers http.Header
	body    string
}

// captureFromHijack snapshots the hijacked request. Returns nil for requests
// that cannot be catalog queries (static assets slip through resource-type
// filtering on some sites).
func captureFromHijack(h *rod.Hijack) *capture {
	req := h.Request.Req()
	if req == nil || req.URL == nil {
		return nil
	}
	c := &capture{
		method:  req.Method,
		url:     req.URL,
		headers: req.Header.Clone(),
		body:    h.Request.Body(),
	}
	if scoreCapture(c) == 0 {
		return nil
	}
	return c
}

// scoreCapture ranks how catalog-like an intercepted request is. Zero means
// not a candidate.
func scoreCapture(c *capture) int {
	path := strings.ToLower(c.url.Path)

	score := 0
	switch {
	case strings.Contains(path, "product"):
		score += 3
	case strings.Contains(path, "catalog"), strings.Contains(path, "search"), strings.Contains(path, "items"):
		score += 2
	}
	if strings.Contains(path, "/api/") || strings.HasPrefix(path, "/api") {
		score += 2
	}
	if score == 0 {
		return 0
	}
	if c.method == http.MethodPost && strings.HasPrefix(strings.TrimSpace(c.body), "{") {
		score += 2
	}
	return score
}

// skippedHeaders are transport-level headers that must not be replayed.
var skippedHeaders = map[string]bool{
	"Content-Length":  true,
	"Host":            true,
	"Connection":      true,
	"Accept-Encoding": true,
}

// templateFromCapture converts an intercepted request into a template.
// JSON body fields and query parameters become template parameter slots,
// sorted by name so identical requests yield identical templates.
func templateFromCapture(c *capture) (*catfetch.RequestTemplate, error) {
	tmpl := &catfetch.RequestTemplate{
		Method:  c.method,
		Headers: make(map[string]string, len(c.headers)),
	}
	for name := range c.headers {
		if skippedHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		tmpl.Headers[name] = c.headers.Get(name)
	}

	u := *c.url
	q := u.Query()
	for name := range q {
		tmpl.Params = append(tmpl.Params, catfetch.Param{Name: name, Value: q.Get(name)})
	}
	u.RawQuery = ""
	u.Fragment = ""
	tmpl.URL = u.String()

	if body := strings.TrimSpace(c.body); body != "" {
		var fields map[string]any
		if err := json.Unmarshal([]byte(body), &fields); err != nil {
			return nil, catfetch.Errorf(catfetch.EMALFORMED, "observed request body is not a JSON object: %v", err)
		}
		for name, value := range fields {
			tmpl.Params = append(tmpl.Params, catfetch.Param{Name: name, Value: value})
		}
	}

	sort.Slice(tmpl.Params, func(i, j int) bool { return tmpl.Params[i].Name < tmpl.Params[j].Name })
	return tmpl, nil
}
