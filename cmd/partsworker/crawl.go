package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"motorciclye/partsworker/config"
	"motorciclye/partsworker/internal/artifact"
	"motorciclye/partsworker/internal/fetch"
	"motorciclye/partsworker/internal/metrics"
	"motorciclye/partsworker/internal/spider"
	"motorciclye/partsworker/services/cache"
	"motorciclye/partsworker/services/dedupe"
	"motorciclye/partsworker/services/publisher"
	"motorciclye/partsworker/services/worker"
)

func newCrawlCmd() *cobra.Command {
	var (
		skip   int
		limit  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "crawl [site...]",
		Short: "Crawl sites and publish their records",
		Long: `Crawl runs one session per named site. Without arguments every
registered site is crawled. Records go to the broker as they are
extracted and to build/<site>/<timestamp>/<site>.json at session end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sites, err := resolveSites(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.MetricsAddr != "" {
				srv := metrics.Serve(cfg.MetricsAddr)
				defer srv.Close()
			}

			var pub publisher.Publisher = publisher.Nop{}
			if !dryRun {
				amqpPub, err := publisher.NewAMQPPublisher(ctx, cfg.Broker)
				if err != nil {
					return err
				}
				defer amqpPub.Close()
				pub = amqpPub
			}

			store := artifact.NewStore(cfg.Crawl.BuildDir)
			w := worker.New(pub, store, cfg.Broker.RoutingKeyPrefix,
				fetcherFactory(cfg, blockCache(cfg)), filterFactory(cfg))

			opts := worker.Options{
				Skip:        cfg.Crawl.Skip,
				Limit:       cfg.Crawl.Limit,
				Concurrency: cfg.Crawl.Concurrency,
				Delay:       cfg.Crawl.Delay.Std(),
			}
			opts.OverrideBounds = opts.Skip != 0 || opts.Limit != 0
			if cmd.Flags().Changed("skip") || cmd.Flags().Changed("limit") {
				opts.Skip, opts.Limit, opts.OverrideBounds = skip, limit, true
			}

			return w.Crawl(ctx, sites, opts)
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "menu links to skip before crawling")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum menu links to crawl (0 = all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "crawl without publishing to the broker")
	return cmd
}

func resolveSites(names []string) ([]*spider.Site, error) {
	if len(names) == 0 {
		return spider.All(), nil
	}
	sites := make([]*spider.Site, 0, len(names))
	for _, name := range names {
		site, ok := spider.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown site %q (known: %v)", name, spider.Names())
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// blockCache picks the shared rate-limit cache: memcached when configured,
// a process-local cache otherwise.
func blockCache(cfg config.Config) cache.CacheService {
	if cfg.MemcacheAddr != "" {
		return cache.NewMemcacheService(cfg.MemcacheAddr)
	}
	return cache.NewMemoryService()
}

func fetcherFactory(cfg config.Config, blocks cache.CacheService) worker.FetcherFactory {
	return func(site *spider.Site) spider.Fetcher {
		if site.UseBrowser {
			return fetch.NewChromeFetcher(site.Name, 2*cfg.Crawl.Timeout.Std())
		}
		return fetch.NewHTTPFetcher(fetch.Options{
			Site:    site.Name,
			Timeout: cfg.Crawl.Timeout.Std(),
			Retries: cfg.Crawl.Retries,
			Cache:   blocks,
		})
	}
}

func filterFactory(cfg config.Config) worker.FilterFactory {
	return func(site *spider.Site) dedupe.Filter {
		if cfg.Redis.Enabled {
			return dedupe.NewRedisFilter(cfg.Redis.Addr, cfg.Redis.DB, "visited:"+site.Name)
		}
		return dedupe.NewMemoryFilter()
	}
}
