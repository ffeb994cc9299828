package spider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "motorciclye/partsworker/pkg/errors"
	"motorciclye/partsworker/services/dedupe"
)

// mapFetcher serves pages from memory and records every fetched URL.
type mapFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (f *mapFetcher) Fetch(_ context.Context, pageURL string) (*Document, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, pageURL)
	body, ok := f.pages[pageURL]
	f.mu.Unlock()
	if !ok {
		return nil, cerrors.NewNetwork("test", "no such page: "+pageURL, nil)
	}
	return ParseDocument(pageURL, strings.NewReader(body))
}

func (f *mapFetcher) fetchedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func (f *mapFetcher) fetchCount(pageURL string) int {
	n := 0
	for _, u := range f.fetchedURLs() {
		if u == pageURL {
			n++
		}
	}
	return n
}

// collector gathers emitted records thread-safely.
type collector struct {
	mu      sync.Mutex
	records []Record
}

func (c *collector) emit(rec Record) {
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
}

func (c *collector) sources() []*SourceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*SourceRecord
	for _, r := range c.records {
		if s, ok := r.(*SourceRecord); ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *collector) products() []*ProductRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*ProductRecord
	for _, r := range c.records {
		if p, ok := r.(*ProductRecord); ok {
			out = append(out, p)
		}
	}
	return out
}

func testSelectors() Selectors {
	return Selectors{
		MenuItems: Chain{`//ul[@id="menu"]/li`},
		MenuLink:  Chain{`./a`},
		Submenu:   Chain{`.//ul[@class="sub"]`},
		SubLinks:  Chain{`.//a`},

		ProductLinks: Chain{`//a[@class="product"]/@href`},
		NextPage:     Chain{`//a[@class="next"]/@href`},

		ProductName:  Chain{`//h1/text()`},
		ProductPrice: Chain{`//span[@class="price"]/text()`},

		SourceLogo:    Chain{`//img[@id="logo"]/@src`},
		SourceAddress: Chain{`//span[@id="addr"]/text()`},
	}
}

func productPage(name, price string) string {
	return `<html><body><h1>` + name + `</h1><span class="price">` + price + `</span></body></html>`
}

func listingPage(products []string, next string) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	for _, p := range products {
		b.WriteString(`<a class="product" href="` + p + `">p</a>`)
	}
	if next != "" {
		b.WriteString(`<a class="next" href="` + next + `">siguiente</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestSessionFullCrawl(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base: `<html><body>
			<ul id="menu">
				<li><a href="/cat/a">Cat A</a></li>
				<li><a href="/cat/b">Cat B</a>
					<ul class="sub"><a href="/cat/b1">B1</a><a href="/cat/b2">B2</a></ul>
				</li>
			</ul>
			<img id="logo" src="/logo.png">
			<span id="addr">Av. Siempre Viva 123</span>
		</body></html>`,

		base + "/cat/a":        listingPage([]string{"/p/1", "/p/2"}, "/cat/a?page=2"),
		base + "/cat/a?page=2": listingPage(nil, "/cat/a?page=3"),
		base + "/cat/a?page=3": listingPage([]string{"/p/3"}, ""),
		base + "/cat/b1":       listingPage([]string{"/p/4"}, ""),
		base + "/cat/b2":       listingPage(nil, ""),

		base + "/p/1": productPage("Producto 1", "$ 1.000"),
		base + "/p/2": productPage("Producto 2", "$ 2.500,50"),
		base + "/p/3": productPage("Producto 3", "Consultar"),
		base + "/p/4": productPage("Producto 4", "$ 400"),
	}}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{URL: base}},
		Selectors:   testSelectors(),
		Pagination:  true,
	}

	col := &collector{}
	sess := NewSession(site, fetcher, dedupe.NewMemoryFilter(), col.emit)
	require.NoError(t, sess.Run(context.Background()))

	sources := col.sources()
	require.Len(t, sources, 1)
	assert.Equal(t, "testshop", sources[0].Name)
	assert.Equal(t, base, sources[0].SourceURL)
	require.NotNil(t, sources[0].Logo)
	assert.Equal(t, base+"/logo.png", *sources[0].Logo)
	require.NotNil(t, sources[0].Address)
	assert.Equal(t, "Av. Siempre Viva 123", *sources[0].Address)

	products := col.products()
	require.Len(t, products, 4)

	byURL := map[string]*ProductRecord{}
	for _, p := range products {
		byURL[p.ProductURL] = p
		assert.Equal(t, "product", p.ItemType)
		assert.Equal(t, "testshop", p.Source)
	}

	p1 := byURL[base+"/p/1"]
	require.NotNil(t, p1)
	assert.Equal(t, "Producto 1", p1.Name)
	assert.Equal(t, "Cat A", p1.MenuName)
	assert.Equal(t, base+"/cat/a", p1.MenuURL)
	require.NotNil(t, p1.Price)
	assert.InDelta(t, 1000, *p1.Price, 0.001)

	// Found through pagination, past an empty page.
	p3 := byURL[base+"/p/3"]
	require.NotNil(t, p3)
	assert.Nil(t, p3.Price)
	assert.Equal(t, "Cat A", p3.MenuName)

	// Found through the flattened submenu.
	p4 := byURL[base+"/p/4"]
	require.NotNil(t, p4)
	assert.Equal(t, "B1", p4.MenuName)

	stats := sess.Stats()
	assert.EqualValues(t, 5, stats.ListingPages)
	assert.EqualValues(t, 4, stats.ProductPages)
	assert.EqualValues(t, 5, stats.Records)
}

func TestSessionSkipLimit(t *testing.T) {
	const base = "https://shop.test"
	var menu strings.Builder
	menu.WriteString(`<html><body><ul id="menu">`)
	links := []string{"/c/0", "/c/1", "/c/2", "/c/3", "/c/4", "/c/5"}
	for _, l := range links {
		menu.WriteString(`<li><a href="` + l + `">` + l + `</a></li>`)
	}
	menu.WriteString(`</ul></body></html>`)

	pages := map[string]string{base: menu.String()}
	for _, l := range links {
		pages[base+l] = listingPage(nil, "")
	}
	fetcher := &mapFetcher{pages: pages}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{URL: base}},
		Selectors:   testSelectors(),
		Skip:        2,
		Limit:       3,
	}

	sess := NewSession(site, fetcher, nil, func(Record) {})
	require.NoError(t, sess.Run(context.Background()))

	assert.Equal(t, 0, fetcher.fetchCount(base+"/c/0"))
	assert.Equal(t, 0, fetcher.fetchCount(base+"/c/1"))
	assert.Equal(t, 1, fetcher.fetchCount(base+"/c/2"))
	assert.Equal(t, 1, fetcher.fetchCount(base+"/c/3"))
	assert.Equal(t, 1, fetcher.fetchCount(base+"/c/4"))
	assert.Equal(t, 0, fetcher.fetchCount(base+"/c/5"))
}

func TestSessionIgnoredURLs(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base: `<html><body><ul id="menu">
			<li><a href="/cat/ok">Ok</a></li>
			<li><a href="/cat/motos/">Motos</a></li>
		</ul></body></html>`,
		base + "/cat/ok": listingPage([]string{"/p/1", "/list/Add/Compare/p/2"}, ""),
		base + "/p/1":    productPage("Uno", "$ 10"),
	}}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{URL: base}},
		Selectors:   testSelectors(),
		IgnoredURLs: []string{"/cat/motos/", "/list/Add/Compare"},
	}

	col := &collector{}
	sess := NewSession(site, fetcher, nil, col.emit)
	require.NoError(t, sess.Run(context.Background()))

	assert.Equal(t, 0, fetcher.fetchCount(base+"/cat/motos/"))
	assert.Equal(t, 0, fetcher.fetchCount(base+"/list/Add/Compare/p/2"))
	require.Len(t, col.products(), 1)
	assert.Equal(t, "Uno", col.products()[0].Name)
}

func TestSessionDedupeAcrossBranches(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base: `<html><body><ul id="menu">
			<li><a href="/cat/a">A</a></li>
			<li><a href="/cat/b">B</a></li>
		</ul></body></html>`,
		base + "/cat/a": listingPage([]string{"/p/shared"}, ""),
		base + "/cat/b": listingPage([]string{"/p/shared"}, ""),
		base + "/p/shared": productPage("Compartido", "$ 99"),
	}}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{URL: base}},
		Selectors:   testSelectors(),
	}

	col := &collector{}
	sess := NewSession(site, fetcher, dedupe.NewMemoryFilter(), col.emit)
	require.NoError(t, sess.Run(context.Background()))

	assert.Equal(t, 1, fetcher.fetchCount(base+"/p/shared"))
	assert.Len(t, col.products(), 1)
}

func TestSessionDedicatedSourcePage(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base + "/contacto": `<html><body>
			<img id="logo" src="/logo.png">
			<span id="addr">Calle Falsa 123</span>
		</body></html>`,
		base: `<html><body><ul id="menu">
			<li><a href="/cat/a">A</a></li>
		</ul></body></html>`,
		base + "/cat/a": listingPage(nil, ""),
	}}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{URL: base}},
		SourceURL:   "/contacto",
		Selectors:   testSelectors(),
	}

	col := &collector{}
	sess := NewSession(site, fetcher, nil, col.emit)
	require.NoError(t, sess.Run(context.Background()))

	sources := col.sources()
	require.Len(t, sources, 1)
	assert.Equal(t, base+"/contacto", sources[0].SourceURL)
}

func TestSessionEntryListingsSkipMenuDiscovery(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base + "/listado/cascos/": listingPage([]string{"/p/1"}, ""),
		base + "/p/1":             productPage("Casco", "$ 50.000"),
	}}

	site := &Site{
		Name: "testshop",
		EntryPoints: []EntryPoint{
			{MenuName: "Cascos", URL: base + "/listado/cascos/"},
		},
		Selectors: testSelectors(),
	}

	col := &collector{}
	sess := NewSession(site, fetcher, nil, col.emit)
	require.NoError(t, sess.Run(context.Background()))

	// No menu page means no opportunistic source record.
	assert.Empty(t, col.sources())
	products := col.products()
	require.Len(t, products, 1)
	assert.Equal(t, "Cascos", products[0].MenuName)
	assert.Equal(t, base+"/listado/cascos/", products[0].MenuURL)
}

func TestSessionStructuralErrorAborts(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base: `<html><body><p>sin menu</p></body></html>`,
	}}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{URL: base}},
		Selectors:   testSelectors(),
	}

	sess := NewSession(site, fetcher, nil, func(Record) {})
	err := sess.Run(context.Background())
	require.Error(t, err)
	assert.True(t, cerrors.IsFatal(err))
}

func TestSessionEmptyEntryPageSparesOtherEntries(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base + "/vacio": `<html><body><p>sin menu</p></body></html>`,
		base + "/lleno": `<html><body><ul id="menu">
			<li><a href="/cat/a">Cat A</a></li>
		</ul></body></html>`,
		base + "/cat/a": listingPage([]string{"/p/1"}, ""),
		base + "/p/1":   productPage("Uno", "$ 10"),
	}}

	site := &Site{
		Name: "testshop",
		EntryPoints: []EntryPoint{
			{URL: base + "/vacio"},
			{URL: base + "/lleno"},
		},
		Selectors: testSelectors(),
	}

	col := &collector{}
	sess := NewSession(site, fetcher, nil, col.emit)
	require.NoError(t, sess.Run(context.Background()))
	require.Len(t, col.products(), 1)
	assert.Equal(t, "Uno", col.products()[0].Name)
}

func TestSessionNetworkErrorAbandonsBranch(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base: `<html><body><ul id="menu">
			<li><a href="/cat/alive">Alive</a></li>
			<li><a href="/cat/dead">Dead</a></li>
		</ul></body></html>`,
		base + "/cat/alive": listingPage([]string{"/p/1"}, ""),
		base + "/p/1":       productPage("Vivo", "$ 1"),
	}}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{URL: base}},
		Selectors:   testSelectors(),
	}

	col := &collector{}
	sess := NewSession(site, fetcher, nil, col.emit)
	require.NoError(t, sess.Run(context.Background()))
	assert.Len(t, col.products(), 1)
}

func TestSessionFieldOverride(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base + "/listado/": listingPage([]string{"/p/1"}, ""),
		base + "/p/1":      productPage("Original", "$ 123"),
	}}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{MenuName: "Lista", URL: base + "/listado/"}},
		Selectors:   testSelectors(),
		Overrides: Hooks{
			FieldCategory: func(_ *Document, rec *ProductRecord) error {
				rec.CategoryName = strPtr(rec.MenuName)
				return nil
			},
		},
	}

	col := &collector{}
	sess := NewSession(site, fetcher, nil, col.emit)
	require.NoError(t, sess.Run(context.Background()))

	products := col.products()
	require.Len(t, products, 1)
	require.NotNil(t, products[0].CategoryName)
	assert.Equal(t, "Lista", *products[0].CategoryName)
}

func TestSessionFieldFailureKeepsRecord(t *testing.T) {
	const base = "https://shop.test"
	fetcher := &mapFetcher{pages: map[string]string{
		base + "/listado/": listingPage([]string{"/p/1"}, ""),
		base + "/p/1":      productPage("Cubierta", "$ 150"),
	}}

	site := &Site{
		Name:        "testshop",
		EntryPoints: []EntryPoint{{MenuName: "Lista", URL: base + "/listado/"}},
		Selectors:   testSelectors(),
		Overrides: Hooks{
			FieldBrand: func(*Document, *ProductRecord) error {
				return cerrors.NewField("testshop", "brand", errors.New("no brand block"))
			},
		},
	}

	col := &collector{}
	sess := NewSession(site, fetcher, nil, col.emit)
	require.NoError(t, sess.Run(context.Background()))

	// The broken field stays at its default; the rest of the record is
	// extracted and emitted as usual.
	products := col.products()
	require.Len(t, products, 1)
	assert.Nil(t, products[0].Brand)
	assert.Equal(t, "Cubierta", products[0].Name)
	require.NotNil(t, products[0].Price)
	assert.Equal(t, 150.0, *products[0].Price)
}
