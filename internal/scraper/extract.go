package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/metrics"
	"github.com/maltedev/listing-scraper/internal/models"
	"github.com/maltedev/listing-scraper/internal/wait"
)

// ExtractPage collects the listings on the session's current page and writes
// them to the sink as one batch. A page without product containers yields an
// empty batch, and a container missing any field is skipped. Only failures
// of the browser engine itself are returned.
func (p *PageScraper) ExtractPage(ctx context.Context, sess *Session, page int) (*models.Batch, error) {
	batch, _, err := p.extractPage(ctx, sess, page)
	return batch, err
}

func (p *PageScraper) extractPage(ctx context.Context, sess *Session, page int) (*models.Batch, int, error) {
	if sess == nil || sess.closed {
		return nil, 0, browser.ErrSessionClosed
	}

	logger := p.logger.With("run_id", sess.runID.String(), "url", sess.url, "page", page)
	batch := models.NewBatch(sess.runID, sess.url, page)
	skipped := 0

	containers, err := sess.engine.WaitFor(ctx, browser.Present(p.selectors.Container), p.timings.WaitTimeout)
	switch {
	case errors.Is(err, browser.ErrWaitTimeout):
		err = fmt.Errorf("%w: %w", ErrNoProductsFound, err)
		logger.Error("timed out while waiting for product containers", "error", err)
		p.metrics.IncError(errorTypeLabel(err))
		p.metrics.IncPage(metrics.OutcomeEmpty)

	case err != nil:
		p.metrics.IncPage(metrics.OutcomeFailed)
		return nil, 0, fmt.Errorf("failed to wait for product containers: %w", err)

	default:
		logger.Info("found products on the page", "count", len(containers))

		for i, container := range containers {
			listing, err := p.extractListing(container, i)
			if err != nil {
				var missing *FieldMissingError
				if !errors.As(err, &missing) {
					p.metrics.IncPage(metrics.OutcomeFailed)
					return nil, 0, fmt.Errorf("failed to extract container %d: %w", i, err)
				}
				logger.Warn("product details not found in container",
					"container", missing.Container,
					"field", missing.Field,
					"error", err)
				p.metrics.IncSkipped(missing.Field)
				skipped++
				continue
			}
			batch.Add(listing)
		}

		p.metrics.IncPage(metrics.OutcomeScraped)
	}

	p.write(ctx, logger, batch)
	return batch, skipped, nil
}

// extractListing reads name, price and sold, in that order, from within one
// container. The first missing field aborts the container.
func (p *PageScraper) extractListing(container browser.Element, index int) (models.Listing, error) {
	var listing models.Listing

	fields := []struct {
		name     string
		selector string
		dst      *string
	}{
		{"name", p.selectors.Name, &listing.Name},
		{"price", p.selectors.Price, &listing.Price},
		{"sold", p.selectors.Sold, &listing.Sold},
	}

	for _, f := range fields {
		el, err := container.FindOne(f.selector)
		if err != nil {
			if errors.Is(err, browser.ErrElementNotFound) {
				return models.Listing{}, &FieldMissingError{Container: index, Field: f.name, Err: err}
			}
			return models.Listing{}, fmt.Errorf("failed to find %s: %w", f.name, err)
		}

		text, err := el.Text()
		if err != nil {
			return models.Listing{}, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		*f.dst = text
	}

	return listing, nil
}

// write hands the batch to the sink. Sink failures are logged and counted but
// never abort the run.
func (p *PageScraper) write(ctx context.Context, logger *slog.Logger, batch *models.Batch) {
	if p.sink == nil {
		return
	}

	if err := p.sink.Write(ctx, batch); err != nil {
		logger.Error("failed to write batch", "records", batch.Len(), "error", err)
		p.metrics.IncError("sink")
		return
	}

	p.metrics.AddRecords(batch.Len())
	logger.Info("records written", "records", batch.Len())
}

// AdvancePage clicks the next page control and waits for the new page to
// settle. It reports false, without error, when the control does not become
// clickable within the wait timeout, which marks the last page.
func (p *PageScraper) AdvancePage(ctx context.Context, sess *Session) (bool, error) {
	if sess == nil || sess.closed {
		return false, browser.ErrSessionClosed
	}

	logger := p.logger.With("run_id", sess.runID.String(), "url", sess.url)

	controls, err := sess.engine.WaitFor(ctx, browser.Clickable(p.selectors.NextPage), p.timings.WaitTimeout)
	if errors.Is(err, browser.ErrWaitTimeout) || (err == nil && len(controls) == 0) {
		unavailable := ErrPaginationUnavailable
		if err != nil {
			unavailable = fmt.Errorf("%w: %w", ErrPaginationUnavailable, err)
		}
		logger.Warn("next page button not found or not clickable", "error", unavailable)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to wait for next page button: %w", err)
	}

	if err := controls[0].Click(); err != nil {
		return false, fmt.Errorf("failed to click next page button: %w", err)
	}
	logger.Info("navigated to the next page")

	if err := wait.Sleep(ctx, p.timings.PageSettle); err != nil {
		return false, fmt.Errorf("interrupted while the next page settled: %w", err)
	}

	return true, nil
}
