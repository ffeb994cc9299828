package fetch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"motorciclye/partsworker/internal/spider"
	"motorciclye/partsworker/logger"
	cerrors "motorciclye/partsworker/pkg/errors"
)

// ChromeFetcher renders pages in headless Chrome before parsing. Used for
// shops that require JavaScript or reject plain HTTP clients.
type ChromeFetcher struct {
	site    string
	timeout time.Duration
	pool    sync.Pool
	log     *logger.Logger
}

// NewChromeFetcher creates a browser-backed fetcher for one site.
func NewChromeFetcher(site string, timeout time.Duration) *ChromeFetcher {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	f := &ChromeFetcher{
		site:    site,
		timeout: timeout,
		log:     logger.ForFetcher("chrome"),
	}
	f.pool.New = func() interface{} {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
		return allocCtx
	}
	return f
}

// Fetch navigates to pageURL, waits for the document and parses the
// rendered HTML.
func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (*spider.Document, error) {
	allocCtx := f.pool.Get().(context.Context)
	defer f.pool.Put(allocCtx)

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.timeout)
	defer cancelTimeout()

	// Stop waiting when the caller's context goes away.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-taskCtx.Done():
		}
	}()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, cerrors.NewNetwork(f.site, "browser navigation failed: "+pageURL, err)
	}

	doc, err := spider.ParseDocument(pageURL, strings.NewReader(html))
	if err != nil {
		return nil, cerrors.NewNetwork(f.site, "failed to parse rendered HTML", err)
	}
	return doc, nil
}
