package catfetch

import (
	"encoding/json"
	"fmt"
)

// ProductRecord is the normalized output unit. The engine treats the
// payload as opaque beyond the fields needed for deduplication; field
// semantics belong to the normalizer's contract.
type ProductRecord struct {
	ID               string          `json:"id,omitempty"`
	Name             string          `json:"name"`
	Price            string          `json:"price,omitempty"`
	OfferPrice       string          `json:"offerPrice,omitempty"`
	OfferDescription string          `json:"offerDescription,omitempty"`
	Stock            int             `json:"stock,omitempty"`
	Barcode          string          `json:"barcode,omitempty"`
	Category         string          `json:"category,omitempty"`
	Subcategory      string          `json:"subcategory,omitempty"`
	ImageURL         string          `json:"imageUrl,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// Key returns a stable identifier used to deduplicate records across
// overlapping pages: barcode, else server-assigned id, else the name.
func (r *ProductRecord) Key() string {
	if r.Barcode != "" {
		return "barcode:" + r.Barcode
	}
	if r.ID != "" {
		return "id:" + r.ID
	}
	return "name:" + r.Name
}

// Validate returns an error if the record contains invalid fields.
func (r *ProductRecord) Validate() error {
	if r.Name == "" {
		return Errorf(EINVALID, "product record name required")
	}
	return nil
}

// Page is one normalized page response: its records plus the pagination
// signals the engine is allowed to interpret.
type Page struct {
	Records []*ProductRecord

	// TotalCount is the reported total item count for the catalog.
	// Nil when the payload carries no such field.
	TotalCount *int

	// HasMore is the explicit has-more signal. Nil when absent.
	HasMore *bool

	// NextCursor is the opaque next-page token. Empty when absent.
	NextCursor string
}

// String returns a short description for logging.
func (p *Page) String() string {
	total := "?"
	if p.TotalCount != nil {
		total = fmt.Sprintf("%d", *p.TotalCount)
	}
	return fmt.Sprintf("page(records=%d total=%s)", len(p.Records), total)
}

// Normalizer maps a raw page payload to typed product records.
// Returns EMALFORMED when the payload cannot be mapped.
type Normalizer interface {
	Normalize(payload []byte) (*Page, error)
}
