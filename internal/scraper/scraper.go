// Package scraper drives a paginated product listing through a browser
// engine: it extracts name, price and units sold from every product tile,
// hands each page's listings to a sink, and clicks through to the next page
// until the requested page count or the last page is reached.
package scraper

import (
	"log/slog"
	"time"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/metrics"
	"github.com/maltedev/listing-scraper/internal/storage"
)

// Selectors locate the parts of a listing page. Name, Price and Sold are
// evaluated inside a single container, never against the whole page.
type Selectors struct {
	Container string
	Name      string
	Price     string
	Sold      string
	NextPage  string
}

// DefaultSelectors returns the selector set for the Daraz catalog layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Container: `div[class="Ms6aG"]`,
		Name:      `div[class="RfADt"]`,
		Price:     `div[class="aBrP0"]`,
		Sold:      `div[class="_6uN7R"] > span[class="_1cEkb"]`,
		NextPage:  `button[class="ant-pagination-item-link"] > span[aria-label="right"]`,
	}
}

// Timings bound every wait a run performs.
type Timings struct {
	// WaitTimeout caps the wait for product containers and for the next page
	// button.
	WaitTimeout time.Duration
	// NavigationSettle is paused after the initial page load.
	NavigationSettle time.Duration
	// PageSettle is paused after clicking through to the next page.
	PageSettle time.Duration
}

// DefaultTimings returns the waits used against a live storefront.
func DefaultTimings() Timings {
	return Timings{
		WaitTimeout:      10 * time.Second,
		NavigationSettle: 2 * time.Second,
		PageSettle:       3 * time.Second,
	}
}

// PageScraper walks a paginated listing page by page and writes each page's
// records to a sink.
type PageScraper struct {
	driver    browser.Driver
	sink      storage.Sink
	logger    *slog.Logger
	metrics   *metrics.Metrics
	selectors Selectors
	timings   Timings
}

// Option configures a PageScraper.
type Option func(*PageScraper)

// WithSelectors overrides DefaultSelectors.
func WithSelectors(s Selectors) Option {
	return func(p *PageScraper) {
		p.selectors = s
	}
}

// WithTimings overrides DefaultTimings.
func WithTimings(t Timings) Option {
	return func(p *PageScraper) {
		p.timings = t
	}
}

// WithMetrics records run outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *PageScraper) {
		p.metrics = m
	}
}

// New returns a PageScraper that launches sessions on driver and writes every
// page's batch to sink. A nil sink discards batches.
func New(driver browser.Driver, sink storage.Sink, logger *slog.Logger, opts ...Option) *PageScraper {
	if logger == nil {
		logger = slog.Default()
	}

	p := &PageScraper{
		driver:    driver,
		sink:      sink,
		logger:    logger.With("component", "page_scraper"),
		selectors: DefaultSelectors(),
		timings:   DefaultTimings(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PageScraper) Selectors() Selectors {
	return p.selectors
}

func (p *PageScraper) Timings() Timings {
	return p.timings
}
