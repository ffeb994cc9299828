package worker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorciclye/partsworker/internal/artifact"
	"motorciclye/partsworker/internal/spider"
	cerrors "motorciclye/partsworker/pkg/errors"
	"motorciclye/partsworker/services/dedupe"
)

// stubFetcher serves pages from memory.
type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, pageURL string) (*spider.Document, error) {
	body, ok := f.pages[pageURL]
	if !ok {
		return nil, cerrors.NewNetwork("test", "no such page: "+pageURL, nil)
	}
	return spider.ParseDocument(pageURL, strings.NewReader(body))
}

// recordingPublisher captures published messages.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

type publishedMessage struct {
	routingKey string
	body       []byte
}

func (p *recordingPublisher) Publish(routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{routingKey, body})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) byKey(key string) []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedMessage
	for _, m := range p.messages {
		if m.routingKey == key {
			out = append(out, m)
		}
	}
	return out
}

func testSite(base string) *spider.Site {
	return &spider.Site{
		Name:          "testshop",
		AllowedDomain: "shop.test",
		EntryPoints:   []spider.EntryPoint{{URL: base}},
		Selectors: spider.Selectors{
			MenuItems:     spider.Chain{`//ul[@id="menu"]/li`},
			MenuLink:      spider.Chain{`./a`},
			ProductLinks:  spider.Chain{`//a[@class="product"]/@href`},
			ProductName:   spider.Chain{`//h1/text()`},
			ProductPrice:  spider.Chain{`//span[@class="price"]/text()`},
			SourceAddress: spider.Chain{`//span[@id="addr"]/text()`},
		},
	}
}

func testPages(base string) map[string]string {
	return map[string]string{
		base: `<html><body>
			<ul id="menu"><li><a href="/cat/a">Cat A</a></li></ul>
			<span id="addr">Av. Test 1</span>
		</body></html>`,
		base + "/cat/a": `<html><body>
			<a class="product" href="/p/1">p</a>
			<a class="product" href="/p/2">p</a>
		</body></html>`,
		base + "/p/1": `<html><body><h1>Uno</h1><span class="price">$ 100</span></body></html>`,
		base + "/p/2": `<html><body><h1>Dos</h1><span class="price">$ 200</span></body></html>`,
	}
}

func newTestWorker(pub *recordingPublisher, store *artifact.Store, pages map[string]string) *Worker {
	fetcherFor := func(*spider.Site) spider.Fetcher { return &stubFetcher{pages: pages} }
	filterFor := func(*spider.Site) dedupe.Filter { return dedupe.NewMemoryFilter() }
	return New(pub, store, "motorciclye", fetcherFor, filterFor)
}

func TestWorkerCrawlPublishesAndArchives(t *testing.T) {
	const base = "https://shop.test"
	pub := &recordingPublisher{}
	store := artifact.NewStore(t.TempDir())
	w := newTestWorker(pub, store, testPages(base))

	site := testSite(base)
	start := time.Now()
	require.NoError(t, w.Crawl(context.Background(), []*spider.Site{site}, Options{}))

	// One source record under the shared key, two products under the
	// per-site key.
	sources := pub.byKey("motorciclye.sources")
	require.Len(t, sources, 1)
	products := pub.byKey("motorciclye.products.testshop")
	require.Len(t, products, 2)

	var rec spider.ProductRecord
	require.NoError(t, json.Unmarshal(products[0].body, &rec))
	assert.Equal(t, "product", rec.ItemType)
	assert.Equal(t, "testshop", rec.Source)

	// Artifact holds every record of the run.
	runs, err := store.Runs("testshop")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	ts, err := time.Parse(artifact.TimestampLayout, runs[0])
	require.NoError(t, err)
	assert.WithinDuration(t, start, ts, 2*time.Second)

	raws, err := store.Read("testshop", runs[0])
	require.NoError(t, err)
	assert.Len(t, raws, 3)
}

func TestWorkerResend(t *testing.T) {
	const base = "https://shop.test"
	pub := &recordingPublisher{}
	store := artifact.NewStore(t.TempDir())
	w := newTestWorker(pub, store, testPages(base))

	require.NoError(t, w.Crawl(context.Background(), []*spider.Site{testSite(base)}, Options{}))
	runs, err := store.Runs("testshop")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	replay := &recordingPublisher{}
	w2 := New(replay, store, "motorciclye", nil, nil)
	sent, err := w2.Resend(context.Background(), "testshop", runs[0])
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Len(t, replay.byKey("motorciclye.sources"), 1)
	assert.Len(t, replay.byKey("motorciclye.products.testshop"), 2)
}

func TestWorkerResendUnknownRun(t *testing.T) {
	pub := &recordingPublisher{}
	store := artifact.NewStore(t.TempDir())
	w := New(pub, store, "motorciclye", nil, nil)

	_, err := w.Resend(context.Background(), "testshop", "20250101000000")
	assert.Error(t, err)
}

func TestWorkerFillsDefaultConcurrencyAndDelay(t *testing.T) {
	const base = "https://shop.test"
	pub := &recordingPublisher{}
	pages := testPages(base)

	var mu sync.Mutex
	seen := map[string][2]any{}
	fetcherFor := func(site *spider.Site) spider.Fetcher {
		mu.Lock()
		seen[site.Name] = [2]any{site.Concurrency, site.Delay}
		mu.Unlock()
		return &stubFetcher{pages: pages}
	}
	w := New(pub, nil, "motorciclye", fetcherFor, nil)

	plain := testSite(base)
	tuned := testSite(base)
	tuned.Name = "tunedshop"
	tuned.Concurrency = 1
	tuned.Delay = time.Millisecond

	opts := Options{Concurrency: 8, Delay: 2 * time.Millisecond}
	require.NoError(t, w.Crawl(context.Background(), []*spider.Site{plain, tuned}, opts))

	// Defaults fill unset sites only; tuned sites keep their own values.
	assert.Equal(t, [2]any{8, 2 * time.Millisecond}, seen["testshop"])
	assert.Equal(t, [2]any{1, time.Millisecond}, seen["tunedshop"])
	assert.Equal(t, 0, plain.Concurrency)
	assert.Equal(t, time.Duration(0), plain.Delay)
}

func TestWorkerBoundsOverrideDoesNotMutateSite(t *testing.T) {
	const base = "https://shop.test"
	pub := &recordingPublisher{}
	w := newTestWorker(pub, nil, testPages(base))

	site := testSite(base)
	opts := Options{Skip: 1, Limit: 1, OverrideBounds: true}
	require.NoError(t, w.Crawl(context.Background(), []*spider.Site{site}, opts))

	assert.Equal(t, 0, site.Skip)
	assert.Equal(t, 0, site.Limit)
	// The single menu link was skipped, so nothing was published besides
	// the source record.
	assert.Empty(t, pub.byKey("motorciclye.products.testshop"))
}
