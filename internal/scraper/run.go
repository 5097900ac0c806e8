package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
)

// Report summarizes one run. Err is set when the run could not start or
// stopped on an unexpected failure; pages scraped before the failure stay in
// the sink and in BatchSizes.
type Report struct {
	RunID           uuid.UUID `json:"run_id"`
	URL             string    `json:"url"`
	PagesRequested  int       `json:"pages_requested"`
	PagesScraped    int       `json:"pages_scraped"`
	BatchSizes      []int     `json:"batch_sizes"`
	Records         int       `json:"records"`
	Skipped         int       `json:"skipped"`
	StoppedEarly    bool      `json:"stopped_early"`
	LastPageReached bool      `json:"last_page_reached"`
	Err             error     `json:"-"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status is failed when the run never reached a page, aborted when it
// stopped on an unexpected error, and completed otherwise.
func (r *Report) Status() string {
	switch {
	case r.Err == nil:
		return StatusCompleted
	case errors.Is(r.Err, ErrNavigation), errors.Is(r.Err, ErrInvalidPageCount):
		return StatusFailed
	default:
		return StatusAborted
	}
}

func (r *Report) addBatch(size, skipped int) {
	r.PagesScraped++
	r.BatchSizes = append(r.BatchSizes, size)
	r.Records += size
	r.Skipped += skipped
}

// Run opens url and scrapes up to pageCount pages, advancing between them.
// It stops early when the next page control is unavailable or on the first
// unexpected error, and always closes the session exactly once. Run never
// panics and never returns a nil report.
func (p *PageScraper) Run(ctx context.Context, url string, pageCount int) *Report {
	report := &Report{
		RunID:          uuid.New(),
		URL:            url,
		PagesRequested: pageCount,
		BatchSizes:     []int{},
		StartedAt:      time.Now(),
	}
	logger := p.logger.With("run_id", report.RunID.String(), "url", url)

	defer func() {
		report.FinishedAt = time.Now()
		p.metrics.ObserveRun(report.Duration())
		p.metrics.IncRun(report.Status())
		logger.Info("run finished",
			"status", report.Status(),
			"pages", report.PagesScraped,
			"records", report.Records,
			"skipped", report.Skipped,
			"duration", report.Duration())
	}()

	if pageCount < 1 {
		report.Err = fmt.Errorf("%w: got %d", ErrInvalidPageCount, pageCount)
		logger.Error("refusing to start run", "error", report.Err)
		p.metrics.IncError(errorTypeLabel(report.Err))
		return report
	}

	sess, err := p.openSession(ctx, report.RunID, url)
	if err != nil {
		report.Err = err
		return report
	}
	defer p.CloseSession(sess)

	for i := 0; i < pageCount; i++ {
		page := i + 1
		last := i == pageCount-1
		logger.Info("scraping page", "page", page, "pages", pageCount)

		advanced, err := p.scrapePage(ctx, sess, report, page, !last)
		if err != nil {
			report.Err = fmt.Errorf("%w: page %d: %w", ErrUnexpectedRun, page, err)
			report.StoppedEarly = true
			logger.Error("error scraping page", "page", page, "error", report.Err)
			p.metrics.IncError(errorTypeLabel(report.Err))
			break
		}

		if !last && !advanced {
			report.LastPageReached = true
			report.StoppedEarly = true
			logger.Info("last page reached", "page", page)
			break
		}
	}

	return report
}

// scrapePage extracts one page and, when advance is set, moves to the next.
// A panic anywhere in between is turned into an error.
func (p *PageScraper) scrapePage(ctx context.Context, sess *Session, report *Report, page int, advance bool) (advanced bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			advanced = false
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	batch, skipped, err := p.extractPage(ctx, sess, page)
	if err != nil {
		return false, err
	}
	report.addBatch(batch.Len(), skipped)

	if !advance {
		return false, nil
	}
	return p.AdvancePage(ctx, sess)
}
