package catfetch

// ConfigCandidate is one concrete set of request parameters to try against
// the API: an observed template with one or more slots overridden.
// Candidates are ephemeral during discovery; only a winning candidate is
// persisted in the configuration cache.
type ConfigCandidate struct {
	// Label is a short human-readable description of the variant,
	// used in logs and the persisted cache.
	Label string `json:"label"`

	// Template is the derived request with overrides applied.
	Template *RequestTemplate `json:"template"`

	// PageSize is the page size this variant requests. Zero means the
	// variant asks for the unbounded ("fetch everything") behavior.
	PageSize int `json:"pageSize,omitempty"`

	// ExpectedTotal is the best-known total item count for the target,
	// learned from an earlier response. Zero when unknown.
	ExpectedTotal int `json:"expectedTotal,omitempty"`
}

// Validate returns an error if the candidate contains invalid fields.
func (c *ConfigCandidate) Validate() error {
	if c.Template == nil {
		return Errorf(EINVALID, "config candidate template required")
	}
	return c.Template.Validate()
}

// WithCursor returns a derived candidate requesting the page identified by
// cursor. An opaque token is passed through as the "cursor" slot; numeric
// offsets use the "page" slot.
func (c *ConfigCandidate) WithCursor(cursor string, page int) *ConfigCandidate {
	d := *c
	if cursor != "" {
		d.Template = c.Template.WithParam("cursor", cursor)
	} else {
		d.Template = c.Template.WithParam("page", page)
	}
	return &d
}
