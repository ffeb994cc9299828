package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorciclye/partsworker/internal/spider"
	cerrors "motorciclye/partsworker/pkg/errors"
	"motorciclye/partsworker/services/cache"
)

func TestHTTPFetcherParsesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><h1>Cubierta Pirelli</h1></body></html>`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Options{Site: "testshop"})
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Cubierta Pirelli", doc.Root().Text(spider.Chain{`//h1/text()`}))
}

func TestHTTPFetcherConcurrentFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>ok</h1></body></html>`))
	}))
	defer srv.Close()

	// One fetcher serves a whole session; hammer it from several
	// goroutines the way concurrent dispatches do.
	f := NewHTTPFetcher(Options{Site: "testshop"})
	var wg sync.WaitGroup
	errs := make(chan error, 8*50)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent fetch failed: %v", err)
	}
}

func TestHTTPFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>ok</h1></body></html>`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Options{Site: "testshop", Backoff: time.Millisecond})
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Root().Text(spider.Chain{`//h1/text()`}))
	assert.EqualValues(t, 2, calls.Load())
}

func TestHTTPFetcherDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Options{Site: "testshop", Backoff: time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestHTTPFetcherRateLimitBlocksSite(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	blocks := cache.NewMemoryService()
	f := NewHTTPFetcher(Options{Site: "testshop", Cache: blocks, BlockTime: time.Minute})

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, cerrors.IsRateLimited(err))
	assert.EqualValues(t, 1, calls.Load())

	// The block is remembered; the next fetch does not hit the server.
	_, err = f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, cerrors.IsRateLimited(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestHTTPFetcherRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"not": "html"}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Options{Site: "testshop"})
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestHTTPFetcherRecordsFinalURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>moved</h1></body></html>`))
	})

	f := NewHTTPFetcher(Options{Site: "testshop"})
	doc, err := f.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", doc.URL().String())
}
