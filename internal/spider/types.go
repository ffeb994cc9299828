package spider

import (
	"context"
	"time"
)

// Fetcher retrieves one page and parses it into a Document. Implementations
// live in internal/fetch; the plain HTTP fetcher is the default and the
// browser-backed one is used for sites behind bot checks.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Document, error)
}

// EmitFunc receives every completed record. It must be safe for concurrent
// calls; the session invokes it from multiple goroutines.
type EmitFunc func(Record)

// Field names one product record field the extractor fills. Sites replace
// individual field extractions through Site.Overrides.
type Field string

const (
	FieldName         Field = "name"
	FieldPrice        Field = "price"
	FieldAttrs        Field = "attrs"
	FieldBrand        Field = "brand"
	FieldDiscountText Field = "discount_text"
	FieldPayments     Field = "payments"
	FieldImages       Field = "images"
	FieldDescription  Field = "description"
	FieldCategory     Field = "category"
)

// productFields is the extraction order. Attrs run before brand because the
// default brand lookup reads the attrs table.
var productFields = []Field{
	FieldName,
	FieldPrice,
	FieldAttrs,
	FieldBrand,
	FieldDiscountText,
	FieldPayments,
	FieldImages,
	FieldDescription,
	FieldCategory,
}

// OverrideFunc replaces the default extraction of one field. The record
// already carries the menu context and product URL when the hook runs.
// Returning a structural error aborts the whole session.
type OverrideFunc func(doc *Document, rec *ProductRecord) error

// Hooks maps fields to their site-specific extraction overrides.
type Hooks map[Field]OverrideFunc

// EntryPoint is one crawl start URL. When MenuName is set the page is
// treated as a category listing under that name rather than a menu page.
type EntryPoint struct {
	URL      string
	MenuName string
}

// Selectors is the declarative extraction map of one site. Each entry is a
// fallback chain tried in order; an empty chain disables the field.
type Selectors struct {
	// Menu discovery. MenuLink and Submenu are evaluated relative to each
	// menu item; SubLinks relative to each submenu. When an item has
	// submenu links they replace the item's own link.
	MenuItems Chain
	MenuLink  Chain
	Submenu   Chain
	SubLinks  Chain

	// Listing pages.
	ProductLinks Chain
	NextPage     Chain

	// Product pages.
	ProductName        Chain
	ProductPrice       Chain
	ProductImages      Chain
	ProductDescription Chain
	ProductBrand       Chain
	AttrRows           Chain
	AttrKey            Chain
	AttrValue          Chain
	DiscountText       Chain
	Payments           Chain
	BreadcrumbLast     Chain

	// BrandLabel is the attrs table label used for the brand when
	// ProductBrand is empty. Defaults to "marca".
	BrandLabel string

	// Store page.
	SourceLogo      Chain
	SourceAddress   Chain
	SourceFacebook  Chain
	SourceInstagram Chain
	SourceX         Chain
	SourcePhone     Chain
	SourceEmail     Chain
	SourceWhatsApp  Chain
	BusinessHours   Chain
}

// Site is the full declarative configuration of one spider.
type Site struct {
	// Name is the canonical site identifier used in routing keys,
	// artifact paths and the source field of product records.
	Name string

	AllowedDomain string
	EntryPoints   []EntryPoint

	// SourceURL, when set, is fetched first and parsed as the store page.
	// When empty the store info is extracted opportunistically from the
	// first entry page. Relative values resolve against the first entry.
	SourceURL string

	Selectors Selectors

	// Pagination enables following NextPage links on listing pages.
	Pagination bool

	// UseBrowser selects the browser-backed fetcher for sites that block
	// plain HTTP clients.
	UseBrowser bool

	// Concurrency caps in-flight fetches for this site. Zero means the
	// configured default.
	Concurrency int

	// Delay is the politeness pause before each fetch.
	Delay time.Duration

	// IgnoredURLs are substrings; any crawl URL containing one is dropped
	// before fetching.
	IgnoredURLs []string

	// Skip and Limit bound the flattened menu link list. Limit zero means
	// unbounded.
	Skip  int
	Limit int

	Overrides Hooks

	// NextPageFunc, when set, replaces the NextPage selector for sites
	// that drive pagination from script attributes.
	NextPageFunc func(doc *Document) string

	// SourceHook, when set, runs after the default store extraction and
	// may amend or validate the record. An error aborts the session.
	SourceHook func(doc *Document, rec *SourceRecord) error
}
