package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/database"
	"github.com/maltedev/listing-scraper/internal/events"
	"github.com/maltedev/listing-scraper/internal/metrics"
	"github.com/maltedev/listing-scraper/internal/scraper"
	"github.com/maltedev/listing-scraper/internal/storage"
)

// runFlags are shared by run and replay.
type runFlags struct {
	url       string
	output    string
	pages     int
	csvHeader bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "listing URL to scrape")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "CSV file to append listings to")
	cmd.Flags().IntVarP(&f.pages, "pages", "p", 0, "number of pages to scrape")
	cmd.Flags().BoolVar(&f.csvHeader, "csv-header", false, "write a header row into a new CSV file")
}

func (f *runFlags) apply(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Run.URL = f.url
	}
	if flags.Changed("output") {
		cfg.Run.OutputPath = f.output
	}
	if flags.Changed("pages") {
		cfg.Run.PageCount = f.pages
	}
	if flags.Changed("csv-header") {
		cfg.Run.CSVHeader = f.csvHeader
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func timings() scraper.Timings {
	return scraper.Timings{
		WaitTimeout:      cfg.Timing.WaitTimeout,
		NavigationSettle: cfg.Timing.NavigationSettle,
		PageSettle:       cfg.Timing.PageSettle,
	}
}

func playwrightDriver() *browser.Playwright {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	if cfg.Browser.UserAgent != "" {
		opts.UserAgent = cfg.Browser.UserAgent
	}
	if cfg.Browser.Locale != "" {
		opts.Locale = cfg.Browser.Locale
	}
	if cfg.Browser.TimezoneID != "" {
		opts.TimezoneID = cfg.Browser.TimezoneID
	}
	return browser.NewPlaywright(opts, log)
}

// openSinks builds the CSV sink plus the optional Postgres and Redis sinks.
// A backing service that cannot be reached is logged and left out so the CSV
// output is still produced.
func openSinks(ctx context.Context) (storage.Sink, func()) {
	var csvOpts []storage.CSVOption
	if cfg.Run.CSVHeader {
		csvOpts = append(csvOpts, storage.WithHeader(storage.DefaultHeader...))
	}
	sinks := []storage.Sink{storage.NewCSVSink(cfg.Run.OutputPath, csvOpts...)}
	var closers []func()

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Name,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			log.Error("database sink disabled", "error", err)
		} else {
			repo := database.NewListingRepository(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Error("database sink disabled", "error", err)
				db.Close()
			} else {
				sinks = append(sinks, repo)
				closers = append(closers, db.Close)
			}
		}
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Error("redis sink disabled", "addr", cfg.Redis.Addr, "error", err)
			client.Close()
		} else {
			publisher := events.NewPublisher(client, cfg.Redis.Stream, log)
			sinks = append(sinks, publisher)
			closers = append(closers, func() { publisher.Close() })
		}
	}

	return storage.NewMultiSink(sinks...), func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// runOnce executes a single run and prints its report. Only a run that could
// not open the listing is reported as an error.
func runOnce(cmd *cobra.Command, driver browser.Driver, m *metrics.Metrics, t scraper.Timings) error {
	sink, closeSinks := openSinks(cmd.Context())
	defer closeSinks()

	s := scraper.New(driver, sink, log,
		scraper.WithTimings(t),
		scraper.WithMetrics(m))

	report := s.Run(cmd.Context(), cfg.Run.URL, cfg.Run.PageCount)
	printReport(cmd.OutOrStdout(), report, cfg.Run.OutputPath)

	if errors.Is(report.Err, scraper.ErrNavigation) {
		return report.Err
	}
	return nil
}
