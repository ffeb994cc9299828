package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PagesFetched counts successful fetches by site and page kind
	// (source, entry, listing, product).
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsworker_pages_fetched_total",
		Help: "Pages fetched successfully",
	}, []string{"site", "kind"})

	// FetchErrors counts failed fetches by site.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsworker_fetch_errors_total",
		Help: "Page fetches that failed after retries",
	}, []string{"site"})

	// RecordsEmitted counts emitted records by site and item type.
	RecordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsworker_records_emitted_total",
		Help: "Records emitted by crawl sessions",
	}, []string{"site", "type"})

	// PublishFailures counts broker publish errors by site.
	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsworker_publish_failures_total",
		Help: "Records that could not be published to the broker",
	}, []string{"site"})

	// CrawlDuration observes whole-session durations by site.
	CrawlDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partsworker_crawl_duration_seconds",
		Help:    "Duration of complete crawl sessions",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"site"})
)

// ObserveCrawl records one finished session.
func ObserveCrawl(site string, d time.Duration) {
	CrawlDuration.WithLabelValues(site).Observe(d.Seconds())
}

// Serve exposes /metrics on addr in the background. The returned server
// can be shut down by the caller.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go srv.ListenAndServe()
	return srv
}
