package spider

// Item type tags carried on every published record.
const (
	ItemTypeSource  = "source"
	ItemTypeProduct = "product"
)

// Record is one publishable crawl result.
type Record interface {
	// RecordType returns the item_type tag ("source" or "product").
	RecordType() string
}

// ContactMethods holds the store's contact channels. Absent channels are
// null on the wire.
type ContactMethods struct {
	Facebook      *string `json:"fb"`
	Instagram     *string `json:"ig"`
	X             *string `json:"x"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	WhatsApp      *string `json:"ws"`
	BusinessHours *string `json:"business_hours"`
}

// SourceRecord describes the store itself. At most one is emitted per
// crawl session.
type SourceRecord struct {
	ItemType       string         `json:"item_type"`
	SourceURL      string         `json:"source_url"`
	Name           string         `json:"name"`
	Address        *string        `json:"address"`
	Logo           *string        `json:"logo"`
	ContactMethods ContactMethods `json:"contact_methods"`
}

// RecordType implements Record.
func (*SourceRecord) RecordType() string { return ItemTypeSource }

// ProductRecord is one record per discovered product page. It is built
// entirely from one page fetch and never mutated after emission.
type ProductRecord struct {
	ItemType     string            `json:"item_type"`
	MenuName     string            `json:"menu_name"`
	MenuURL      string            `json:"menu_url"`
	ProductURL   string            `json:"product_url"`
	Name         string            `json:"name"`
	Price        *float64          `json:"price"`
	Brand        *string           `json:"brand"`
	Attrs        map[string]string `json:"attrs"`
	DiscountText *string           `json:"discount_text"`
	Payments     []string          `json:"payments"`
	Images       []string          `json:"images"`
	Description  *string           `json:"description"`
	CategoryName *string           `json:"category_name"`
	CategoryURL  *string           `json:"category_url"`
	// Source is the site identifier the record came from.
	Source string `json:"source"`
}

// RecordType implements Record.
func (*ProductRecord) RecordType() string { return ItemTypeProduct }

// MenuContext is the category context threaded through listing and
// product dispatches. It is read-only from the extractor's perspective.
type MenuContext struct {
	Name string
	URL  string
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
