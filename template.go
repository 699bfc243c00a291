package catfetch

import "context"

// DefaultUserAgent is applied when an observed session carries no
// User-Agent header of its own.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Param is a single request-parameter slot with its captured default value.
// For POST APIs these are body fields; for GET APIs, query parameters.
type Param struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// RequestTemplate describes one observed API request: method, endpoint,
// headers, and the ordered parameter slots the client sent. Templates are
// owned by the discovery phase and never mutated after capture; variants
// are derived copies.
type RequestTemplate struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Params  []Param           `json:"params"`
}

// Validate returns an error if the template contains invalid fields.
func (t *RequestTemplate) Validate() error {
	if t.Method == "" {
		return Errorf(EINVALID, "request template method required")
	}
	if t.URL == "" {
		return Errorf(EINVALID, "request template URL required")
	}
	return nil
}

// Clone returns a deep copy of the template.
func (t *RequestTemplate) Clone() *RequestTemplate {
	c := &RequestTemplate{
		Method:  t.Method,
		URL:     t.URL,
		Headers: make(map[string]string, len(t.Headers)),
		Params:  make([]Param, len(t.Params)),
	}
	for k, v := range t.Headers {
		c.Headers[k] = v
	}
	copy(c.Params, t.Params)
	return c
}

// Param returns the value of the named parameter slot.
func (t *RequestTemplate) Param(name string) (any, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// WithParam returns a derived copy with the named slot overridden,
// appending a new slot when the template has none by that name.
func (t *RequestTemplate) WithParam(name string, value any) *RequestTemplate {
	c := t.Clone()
	for i, p := range c.Params {
		if p.Name == name {
			c.Params[i].Value = value
			return c
		}
	}
	c.Params = append(c.Params, Param{Name: name, Value: value})
	return c
}

// WithoutParam returns a derived copy with the named slot removed.
func (t *RequestTemplate) WithoutParam(name string) *RequestTemplate {
	c := t.Clone()
	for i, p := range c.Params {
		if p.Name == name {
			c.Params = append(c.Params[:i], c.Params[i+1:]...)
			return c
		}
	}
	return c
}

// Observer captures an example API request by watching a real client
// session for a target. Implementations typically drive a headless browser
// and intercept the client's outbound API traffic.
type Observer interface {
	// Observe loads the target in a real client session and returns the
	// first matching API request observed.
	// The context controls timeout and cancellation.
	Observe(ctx context.Context, target *CatalogTarget) (*RequestTemplate, error)

	// Close releases browser resources.
	// Must be called when the Observer is no longer needed.
	Close() error
}
