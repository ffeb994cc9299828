package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"motorciclye/partsworker/internal/spider"
	"motorciclye/partsworker/logger"
	cerrors "motorciclye/partsworker/pkg/errors"
	"motorciclye/partsworker/services/cache"
)

// Browser-like header pools, rotated per request.
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.google.com.ar/",
		"https://www.bing.com/",
	}
)

// retryableStatus lists the responses worth retrying with backoff.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Options tunes an HTTPFetcher.
type Options struct {
	// Site labels errors and the rate-limit block key.
	Site    string
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	// BlockTime is how long the site stays blocked after a 429.
	BlockTime time.Duration
	// Cache, when set, holds the rate-limit block marker so parallel
	// sessions and consecutive runs back off together.
	Cache cache.CacheService
}

func (o *Options) withDefaults() {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retries == 0 {
		o.Retries = 2
	}
	if o.Backoff == 0 {
		o.Backoff = 2 * time.Second
	}
	if o.BlockTime == 0 {
		o.BlockTime = 5 * time.Minute
	}
}

// HTTPFetcher fetches pages with a plain HTTP client, randomized browser
// headers and bounded retries.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
	log    *logger.Logger
}

// NewHTTPFetcher creates a fetcher for one site.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	opts.withDefaults()
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		log:    logger.ForFetcher("http"),
	}
}

func (f *HTTPFetcher) blockKey() string {
	return "fetch:block:" + f.opts.Site
}

// Fetch retrieves and parses one page. Retryable failures are retried with
// linear backoff; a 429 blocks the whole site for BlockTime.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*spider.Document, error) {
	if f.opts.Cache != nil {
		if _, err := f.opts.Cache.Get(f.blockKey()); err == nil {
			return nil, cerrors.NewRateLimit(f.opts.Site, f.opts.BlockTime)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= f.opts.Retries; attempt++ {
		if attempt > 0 {
			f.log.Debug().Str("url", pageURL).Int("attempt", attempt).Msg("Retrying fetch")
			timer := time.NewTimer(f.opts.Backoff * time.Duration(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}
		doc, retryable, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, pageURL string) (*spider.Document, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, cerrors.NewNetwork(f.opts.Site, "failed to create request", err)
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, cerrors.NewNetwork(f.opts.Site, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 430 {
		if f.opts.Cache != nil {
			if err := f.opts.Cache.Set(f.blockKey(), []byte("1"), f.opts.BlockTime); err != nil {
				f.log.Warn().Err(err).Msg("Failed to store rate-limit block")
			}
		}
		f.log.Warn().Str("url", pageURL).Dur("block", f.opts.BlockTime).Msg("Rate limited")
		return nil, false, cerrors.NewRateLimit(f.opts.Site, f.opts.BlockTime)
	}
	if retryableStatus[resp.StatusCode] {
		return nil, true, cerrors.NewNetwork(f.opts.Site, fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, cerrors.NewNetwork(f.opts.Site, fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "text/html") {
		return nil, false, cerrors.NewNetwork(f.opts.Site, "response is not HTML: "+ct, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, cerrors.NewNetwork(f.opts.Site, "failed to read response body", err)
	}

	reader, err := toUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, false, cerrors.NewNetwork(f.opts.Site, "failed to decode response body", err)
	}

	// Redirects may land elsewhere; the final URL is the record URL.
	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	doc, err := spider.ParseDocument(finalURL, reader)
	if err != nil {
		return nil, false, cerrors.NewNetwork(f.opts.Site, "failed to parse HTML", err)
	}
	return doc, false, nil
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	// Fetches run concurrently; a fresh generator per request keeps this
	// free of shared state.
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.8")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")
}

// toUTF8 converts the body to UTF-8 based on the declared and sniffed
// encoding.
func toUTF8(body []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return bytes.NewReader(body), nil
	}
	decoded, err := io.ReadAll(encoding.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(decoded), nil
}
