package spider

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"motorciclye/partsworker/internal/metrics"
	"motorciclye/partsworker/logger"
	cerrors "motorciclye/partsworker/pkg/errors"
	"motorciclye/partsworker/services/dedupe"
)

// DefaultConcurrency caps in-flight fetches when a site does not set its
// own limit.
const DefaultConcurrency = 4

// Stats are the running counters of one session.
type Stats struct {
	ListingPages int64
	ProductPages int64
	Records      int64
}

// Session runs one site crawl from its entry points to the emission of
// source and product records. A session is single-use.
type Session struct {
	site    *Site
	fetcher Fetcher
	filter  dedupe.Filter
	emit    EmitFunc
	log     *logger.Logger

	sem chan struct{}

	sourceParsed atomic.Bool
	listingPages atomic.Int64
	productPages atomic.Int64
	records      atomic.Int64
}

// NewSession wires a session. filter may be nil to disable URL
// deduplication; emit must not be nil.
func NewSession(site *Site, fetcher Fetcher, filter dedupe.Filter, emit EmitFunc) *Session {
	concurrency := site.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Session{
		site:    site,
		fetcher: fetcher,
		filter:  filter,
		emit:    emit,
		log:     logger.ForSpider(site.Name),
		sem:     make(chan struct{}, concurrency),
	}
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		ListingPages: s.listingPages.Load(),
		ProductPages: s.productPages.Load(),
		Records:      s.records.Load(),
	}
}

// Run crawls the site until every reachable branch is exhausted or a
// structural error aborts the session. Network failures abandon their
// branch only.
func (s *Session) Run(ctx context.Context) error {
	start := time.Now()
	s.log.Info().
		Int("entry_points", len(s.site.EntryPoints)).
		Bool("pagination", s.site.Pagination).
		Msg("Crawl session started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.start(gctx, g) })
	err := g.Wait()

	stats := s.Stats()
	metrics.ObserveCrawl(s.site.Name, time.Since(start))
	evt := s.log.Info()
	if err != nil {
		evt = s.log.Error().Err(err)
	}
	evt.
		Int64("listing_pages", stats.ListingPages).
		Int64("product_pages", stats.ProductPages).
		Int64("records", stats.Records).
		Dur("elapsed", time.Since(start)).
		Msg("Crawl session finished")
	return err
}

func (s *Session) start(ctx context.Context, g *errgroup.Group) error {
	if s.site.SourceURL != "" {
		if err := s.crawlSourcePage(ctx); err != nil {
			return err
		}
	}

	for _, entry := range s.site.EntryPoints {
		if entry.MenuName != "" {
			s.dispatchListing(ctx, g, entry.URL, MenuContext{Name: entry.MenuName, URL: entry.URL})
			continue
		}
		doc, err := s.fetch(ctx, entry.URL, "entry")
		if err != nil {
			if cerrors.IsFatal(err) {
				return err
			}
			s.log.Warn().Err(err).Str("url", entry.URL).Msg("Entry fetch failed, branch abandoned")
			continue
		}
		if err := s.parseEntry(ctx, g, doc); err != nil {
			return err
		}
	}
	return nil
}

// crawlSourcePage fetches the dedicated store page. A fetch failure only
// costs the source record; parse failures are structural.
func (s *Session) crawlSourcePage(ctx context.Context) error {
	pageURL := s.resolveSourceURL()
	if pageURL == "" {
		return nil
	}
	doc, err := s.fetch(ctx, pageURL, "source")
	if err != nil {
		s.log.Warn().Err(err).Str("url", pageURL).Msg("Store page fetch failed, source record skipped")
		return nil
	}
	return s.parseSource(doc)
}

// resolveSourceURL resolves a relative SourceURL against the first entry
// point.
func (s *Session) resolveSourceURL() string {
	src := s.site.SourceURL
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return src
	}
	if len(s.site.EntryPoints) == 0 {
		return ""
	}
	base, err := url.Parse(s.site.EntryPoints[0].URL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// parseEntry handles one menu page: opportunistic source extraction, menu
// flattening, skip/limit windowing and listing dispatch.
func (s *Session) parseEntry(ctx context.Context, g *errgroup.Group, doc *Document) error {
	if s.site.SourceURL == "" && !s.sourceParsed.Load() {
		if err := s.parseSource(doc); err != nil {
			return err
		}
	}

	links := s.discoverMenu(doc)
	window := sliceMenu(links, s.site.Skip, s.site.Limit)
	s.log.Info().
		Str("url", doc.URL().String()).
		Int("menu_links", len(links)).
		Int("selected", len(window)).
		Msg("Menu discovered")
	if len(links) == 0 {
		// With a single entry point an empty menu means broken selectors.
		// With several, the other entries may still be healthy.
		if len(s.site.EntryPoints) > 1 {
			s.log.Warn().Str("url", doc.URL().String()).Msg("No menu links on entry page, branch abandoned")
			return nil
		}
		return cerrors.NewStructural(s.site.Name, "no menu links on entry page "+doc.URL().String(), nil)
	}

	for _, menu := range window {
		s.dispatchListing(ctx, g, menu.URL, menu)
	}
	return nil
}

// discoverMenu flattens the site menu one level deep: items with submenu
// links contribute those instead of their own link.
func (s *Session) discoverMenu(doc *Document) []MenuContext {
	sel := s.site.Selectors
	var links []MenuContext

	add := func(el Element) {
		href := el.linkURL()
		if href == "" {
			return
		}
		links = append(links, MenuContext{Name: el.OwnText(), URL: href})
	}

	for _, item := range doc.Root().Find(sel.MenuItems) {
		var subs []Element
		for _, submenu := range item.Find(sel.Submenu) {
			subs = append(subs, submenu.Find(sel.SubLinks)...)
		}
		if len(subs) > 0 {
			for _, sub := range subs {
				add(sub)
			}
			continue
		}
		link, ok := item.First(sel.MenuLink)
		if !ok {
			link = item
		}
		add(link)
	}
	return links
}

// sliceMenu applies the skip/limit window to the ordered menu link list.
func sliceMenu(links []MenuContext, skip, limit int) []MenuContext {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(links) {
		return nil
	}
	end := len(links)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return links[skip:end]
}

func (s *Session) dispatchListing(ctx context.Context, g *errgroup.Group, pageURL string, menu MenuContext) {
	g.Go(func() error { return s.crawlListing(ctx, g, pageURL, menu) })
}

// crawlListing fetches one listing page, dispatches its products and
// follows the next-page link. Pagination continues past empty pages as
// long as a next link exists.
func (s *Session) crawlListing(ctx context.Context, g *errgroup.Group, pageURL string, menu MenuContext) error {
	if s.skipURL(ctx, pageURL) {
		return nil
	}
	doc, err := s.fetch(ctx, pageURL, "listing")
	if err != nil {
		s.log.Warn().Err(err).Str("url", pageURL).Str("menu", menu.Name).Msg("Listing fetch failed, branch abandoned")
		return nil
	}
	s.listingPages.Add(1)

	links := doc.Root().Links(s.site.Selectors.ProductLinks)
	s.log.Debug().Str("url", pageURL).Str("menu", menu.Name).Int("products", len(links)).Msg("Listing parsed")
	for _, link := range links {
		s.dispatchProduct(ctx, g, link, menu)
	}

	if !s.site.Pagination {
		return nil
	}
	next := s.nextPageURL(doc)
	if next == "" || next == pageURL {
		return nil
	}
	return s.crawlListing(ctx, g, next, menu)
}

func (s *Session) nextPageURL(doc *Document) string {
	if s.site.NextPageFunc != nil {
		return doc.AbsoluteURL(s.site.NextPageFunc(doc))
	}
	return doc.Root().FirstURL(s.site.Selectors.NextPage)
}

func (s *Session) dispatchProduct(ctx context.Context, g *errgroup.Group, pageURL string, menu MenuContext) {
	if s.skipURL(ctx, pageURL) {
		return
	}
	g.Go(func() error { return s.crawlProduct(ctx, pageURL, menu) })
}

func (s *Session) crawlProduct(ctx context.Context, pageURL string, menu MenuContext) error {
	doc, err := s.fetch(ctx, pageURL, "product")
	if err != nil {
		s.log.Warn().Err(err).Str("url", pageURL).Msg("Product fetch failed, record skipped")
		return nil
	}
	s.productPages.Add(1)

	rec, err := s.buildProduct(doc, menu)
	if err != nil {
		return err
	}
	s.emitRecord(rec)
	return nil
}

// buildProduct runs the field extractors over one product page. Field
// failures fall back to the zero value; structural errors propagate.
func (s *Session) buildProduct(doc *Document, menu MenuContext) (*ProductRecord, error) {
	rec := &ProductRecord{
		ItemType:   ItemTypeProduct,
		MenuName:   menu.Name,
		MenuURL:    menu.URL,
		ProductURL: doc.URL().String(),
		Attrs:      map[string]string{},
		Images:     []string{},
		Source:     s.site.Name,
	}
	for _, field := range productFields {
		if err := s.extractField(field, doc, rec); err != nil {
			if cerrors.IsFatal(err) {
				return nil, err
			}
			s.log.Debug().Err(err).
				Str("field", string(field)).
				Str("url", rec.ProductURL).
				Msg("Field extraction failed, default kept")
		}
	}
	if rec.Name == "" {
		return nil, cerrors.NewStructural(s.site.Name, "product without name at "+rec.ProductURL, nil)
	}
	return rec, nil
}

// extractField fills one field, preferring the site's override hook.
func (s *Session) extractField(field Field, doc *Document, rec *ProductRecord) error {
	if hook, ok := s.site.Overrides[field]; ok {
		return hook(doc, rec)
	}

	sel := s.site.Selectors
	root := doc.Root()
	switch field {
	case FieldName:
		rec.Name = root.Text(sel.ProductName)
	case FieldPrice:
		rec.Price = CleanPrice(root.Text(sel.ProductPrice))
	case FieldAttrs:
		rec.Attrs = root.AttrTable(sel.AttrRows, sel.AttrKey, sel.AttrValue)
	case FieldBrand:
		brand := root.Text(sel.ProductBrand)
		if brand == "" {
			label := sel.BrandLabel
			if label == "" {
				label = "marca"
			}
			brand = LookupLabel(rec.Attrs, label)
		}
		rec.Brand = strPtr(brand)
	case FieldDiscountText:
		rec.DiscountText = strPtr(root.Text(sel.DiscountText))
	case FieldPayments:
		rec.Payments = root.TextAll(sel.Payments)
	case FieldImages:
		rec.Images = root.Images(sel.ProductImages)
	case FieldDescription:
		rec.Description = strPtr(root.Text(sel.ProductDescription))
	case FieldCategory:
		rec.CategoryName, rec.CategoryURL = root.Breadcrumb(sel.BreadcrumbLast)
	}
	return nil
}

// parseSource extracts the store record. The compare-and-swap guarantees
// at most one source record per session even with concurrent entry pages.
func (s *Session) parseSource(doc *Document) error {
	if !s.sourceParsed.CompareAndSwap(false, true) {
		return nil
	}
	sel := s.site.Selectors
	root := doc.Root()
	rec := &SourceRecord{
		ItemType:  ItemTypeSource,
		SourceURL: doc.URL().String(),
		Name:      s.site.Name,
		Address:   strPtr(root.TextJoin(sel.SourceAddress, " ")),
		Logo:      strPtr(root.FirstURL(sel.SourceLogo)),
		ContactMethods: ContactMethods{
			Facebook:      strPtr(root.FirstURL(sel.SourceFacebook)),
			Instagram:     strPtr(root.FirstURL(sel.SourceInstagram)),
			X:             strPtr(root.FirstURL(sel.SourceX)),
			Phone:         strPtr(root.FirstRaw(sel.SourcePhone)),
			Email:         strPtr(root.FirstRaw(sel.SourceEmail)),
			WhatsApp:      strPtr(root.FirstRaw(sel.SourceWhatsApp)),
			BusinessHours: strPtr(root.TextJoin(sel.BusinessHours, " ")),
		},
	}
	if s.site.SourceHook != nil {
		if err := s.site.SourceHook(doc, rec); err != nil {
			return cerrors.NewStructural(s.site.Name, "store page parse failed", err)
		}
	}
	s.emitRecord(rec)
	return nil
}

func (s *Session) emitRecord(rec Record) {
	s.records.Add(1)
	metrics.RecordsEmitted.WithLabelValues(s.site.Name, rec.RecordType()).Inc()
	s.emit(rec)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// skipURL reports whether pageURL is ignored by configuration or already
// visited this session.
func (s *Session) skipURL(ctx context.Context, pageURL string) bool {
	for _, frag := range s.site.IgnoredURLs {
		if frag != "" && containsFold(pageURL, frag) {
			s.log.Debug().Str("url", pageURL).Str("fragment", frag).Msg("URL ignored")
			return true
		}
	}
	if s.filter == nil {
		return false
	}
	seen, err := s.filter.Seen(ctx, pageURL)
	if err != nil {
		s.log.Warn().Err(err).Str("url", pageURL).Msg("Dedupe check failed, URL crawled anyway")
		return false
	}
	if seen {
		s.log.Debug().Str("url", pageURL).Msg("URL already visited")
	}
	return seen
}

// fetch acquires a concurrency slot, honors the politeness delay and
// delegates to the fetcher.
func (s *Session) fetch(ctx context.Context, pageURL, kind string) (*Document, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	if s.site.Delay > 0 {
		timer := time.NewTimer(s.site.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(s.site.Name).Inc()
		return nil, err
	}
	metrics.PagesFetched.WithLabelValues(s.site.Name, kind).Inc()
	return doc, nil
}
