package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/wait"
)

// Session is a browser session bound to one listing URL for one run.
type Session struct {
	runID  uuid.UUID
	url    string
	engine browser.Session
	closed bool
}

func (s *Session) URL() string {
	return s.url
}

func (s *Session) RunID() uuid.UUID {
	return s.runID
}

func (s *Session) Closed() bool {
	return s.closed
}

// OpenSession launches a browser session, loads url and waits for the page to
// settle. On failure the session is torn down before returning and the error
// wraps ErrNavigation.
func (p *PageScraper) OpenSession(ctx context.Context, url string) (*Session, error) {
	return p.openSession(ctx, uuid.New(), url)
}

func (p *PageScraper) openSession(ctx context.Context, runID uuid.UUID, url string) (*Session, error) {
	logger := p.logger.With("run_id", runID.String(), "url", url)

	if strings.TrimSpace(url) == "" {
		err := fmt.Errorf("%w: url is empty", ErrNavigation)
		logger.Error("failed to open the url", "error", err)
		p.metrics.IncError(errorTypeLabel(err))
		return nil, err
	}

	logger.Info("opening url")

	engine, err := p.driver.Launch(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrNavigation, err)
		logger.Error("failed to launch browser", "error", err)
		p.metrics.IncError(errorTypeLabel(err))
		return nil, err
	}

	sess := &Session{runID: runID, url: url, engine: engine}

	if err := engine.Navigate(ctx, url); err != nil {
		return nil, p.abortOpen(logger, sess, err)
	}

	if err := wait.Sleep(ctx, p.timings.NavigationSettle); err != nil {
		return nil, p.abortOpen(logger, sess, err)
	}

	return sess, nil
}

func (p *PageScraper) abortOpen(logger *slog.Logger, sess *Session, cause error) error {
	err := fmt.Errorf("%w: %w", ErrNavigation, cause)
	logger.Error("failed to open the url", "error", err)
	p.metrics.IncError(errorTypeLabel(err))
	p.CloseSession(sess)
	return err
}

// CloseSession tears the session down. It never fails: errors are logged and
// a session that is nil or already closed is left alone.
func (p *PageScraper) CloseSession(sess *Session) {
	if sess == nil {
		return
	}

	logger := p.logger.With("run_id", sess.runID.String(), "url", sess.url)

	if sess.closed {
		logger.Debug("session already closed")
		return
	}
	sess.closed = true

	defer func() {
		if r := recover(); r != nil {
			logger.Error("error closing the browser session", "error", fmt.Errorf("%w: panic: %v", ErrCleanup, r))
			p.metrics.IncError(errorTypeLabel(ErrCleanup))
		}
	}()

	if err := sess.engine.Close(); err != nil {
		logger.Error("error closing the browser session", "error", fmt.Errorf("%w: %w", ErrCleanup, err))
		p.metrics.IncError(errorTypeLabel(ErrCleanup))
		return
	}

	logger.Info("browser session closed successfully")
}
