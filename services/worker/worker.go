// Package worker runs crawl sessions for a set of sites in parallel and
// moves their records to the broker and the run artifact.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"motorciclye/partsworker/internal/artifact"
	"motorciclye/partsworker/internal/metrics"
	"motorciclye/partsworker/internal/spider"
	"motorciclye/partsworker/logger"
	"motorciclye/partsworker/services/dedupe"
	"motorciclye/partsworker/services/publisher"
)

// FetcherFactory builds the page fetcher for one site.
type FetcherFactory func(site *spider.Site) spider.Fetcher

// FilterFactory builds the URL dedupe filter for one site. May return nil
// to disable deduplication.
type FilterFactory func(site *spider.Site) dedupe.Filter

// Options adjust one Crawl invocation.
type Options struct {
	// Skip and Limit override the per-site menu window when
	// OverrideBounds is set.
	Skip           int
	Limit          int
	OverrideBounds bool
	// Concurrency and Delay fill in sites that do not set their own.
	Concurrency int
	Delay       time.Duration
}

// Worker owns the shared crawl dependencies.
type Worker struct {
	publisher  publisher.Publisher
	store      *artifact.Store
	prefix     string
	fetcherFor FetcherFactory
	filterFor  FilterFactory
	log        *logger.Logger
}

// New creates a worker. store may be nil to skip artifacts.
func New(pub publisher.Publisher, store *artifact.Store, prefix string, fetcherFor FetcherFactory, filterFor FilterFactory) *Worker {
	return &Worker{
		publisher:  pub,
		store:      store,
		prefix:     prefix,
		fetcherFor: fetcherFor,
		filterFor:  filterFor,
		log:        logger.ForWorker(),
	}
}

// Crawl runs one session per site concurrently and returns the combined
// session errors. One failing site does not stop the others.
func (w *Worker) Crawl(ctx context.Context, sites []*spider.Site, opts Options) error {
	w.log.Info().Int("sites", len(sites)).Msg("Starting crawl")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, site := range sites {
		wg.Add(1)
		go func(site *spider.Site) {
			defer wg.Done()
			if err := w.crawlSite(ctx, site, opts); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(site)
	}
	wg.Wait()

	w.log.Info().Int("sites", len(sites)).Int("failed", len(errs)).Msg("Crawl finished")
	return errors.Join(errs...)
}

func (w *Worker) crawlSite(ctx context.Context, site *spider.Site, opts Options) error {
	start := time.Now()

	run := *site
	if opts.OverrideBounds {
		run.Skip = opts.Skip
		run.Limit = opts.Limit
	}
	if run.Concurrency == 0 {
		run.Concurrency = opts.Concurrency
	}
	if run.Delay == 0 {
		run.Delay = opts.Delay
	}

	var mu sync.Mutex
	var records []spider.Record
	emit := func(rec spider.Record) {
		mu.Lock()
		records = append(records, rec)
		mu.Unlock()
		w.publishRecord(run.Name, rec)
	}

	var filter dedupe.Filter
	if w.filterFor != nil {
		filter = w.filterFor(&run)
	}
	session := spider.NewSession(&run, w.fetcherFor(&run), filter, emit)
	err := session.Run(ctx)

	// Records gathered before a failure are still worth keeping.
	if w.store != nil && len(records) > 0 {
		path, werr := w.store.Write(run.Name, start, records)
		if werr != nil {
			w.log.Error().Err(werr).Str("site", run.Name).Msg("Failed to write artifact")
		} else {
			w.log.Info().Str("site", run.Name).Str("path", path).Int("records", len(records)).Msg("Artifact written")
		}
	}
	return err
}

// publishRecord marshals and publishes one record. Publish failures are
// logged and counted; the crawl keeps going and the artifact still holds
// the record for a later resend.
func (w *Worker) publishRecord(site string, rec spider.Record) {
	body, err := json.Marshal(rec)
	if err != nil {
		w.log.Error().Err(err).Str("site", site).Msg("Failed to marshal record")
		return
	}
	key := w.routingKey(site, rec.RecordType())
	if err := w.publisher.Publish(key, body); err != nil {
		metrics.PublishFailures.WithLabelValues(site).Inc()
		w.log.Error().Err(err).Str("site", site).Str("routing_key", key).Msg("Failed to publish record")
		return
	}
	w.log.Debug().Str("site", site).Str("routing_key", key).Msg("Record published")
}

func (w *Worker) routingKey(site, recordType string) string {
	if recordType == spider.ItemTypeSource {
		return publisher.SourceKey(w.prefix)
	}
	return publisher.ProductKey(w.prefix, site)
}

// Resend replays a finished run's artifact to the broker and returns how
// many records went out.
func (w *Worker) Resend(ctx context.Context, site, timestamp string) (int, error) {
	raws, err := w.store.Read(site, timestamp)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		key := w.routingKey(site, artifact.ItemType(raw))
		if err := w.publisher.Publish(key, raw); err != nil {
			metrics.PublishFailures.WithLabelValues(site).Inc()
			w.log.Error().Err(err).Str("site", site).Str("routing_key", key).Msg("Failed to resend record")
			continue
		}
		sent++
	}
	w.log.Info().Str("site", site).Str("timestamp", timestamp).Int("sent", sent).Int("total", len(raws)).Msg("Resend finished")
	return sent, nil
}
