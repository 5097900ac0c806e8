package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maltedev/listing-scraper/internal/wait"
	"github.com/playwright-community/playwright-go"
)

const clickablePollInterval = 200 * time.Millisecond

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "Asia/Karachi",
		Locale:         "en-US",
	}
}

// Playwright launches one chromium instance per session.
type Playwright struct {
	opts   *Options
	logger *slog.Logger
}

func NewPlaywright(opts *Options, logger *slog.Logger) *Playwright {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Playwright{
		opts:   opts,
		logger: logger.With("component", "browser"),
	}
}

// Install downloads the playwright driver and the chromium build it needs.
func Install(verbose bool) error {
	if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  verbose,
	}); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	return nil
}

func (p *Playwright) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(p.opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if p.opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: p.opts.ProxyServer}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(p.opts.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(p.opts.Locale),
		TimezoneId:        playwright.String(p.opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  p.opts.ViewportWidth,
			Height: p.opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": p.opts.AcceptLanguage,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(p.opts.Timeout.Milliseconds()))

	p.logger.Debug("browser session launched", "headless", p.opts.Headless)

	return &playwrightSession{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		timeout: p.opts.Timeout,
	}, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   milliseconds(s.timeout),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *playwrightSession) WaitFor(ctx context.Context, cond Condition, timeout time.Duration) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	locator := s.page.Locator(cond.Selector)

	state := playwright.WaitForSelectorStateAttached
	if cond.State == StateClickable {
		state = playwright.WaitForSelectorStateVisible
	}

	err := locator.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: milliseconds(timeout),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s %q", ErrWaitTimeout, cond.State, cond.Selector)
		}
		return nil, fmt.Errorf("failed to wait for %q: %w", cond.Selector, err)
	}

	if cond.State == StateClickable {
		first := locator.First()
		err := wait.Until(ctx, timeout-time.Since(started), clickablePollInterval, func() (bool, error) {
			return clickable(first)
		})
		if errors.Is(err, wait.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s %q", ErrWaitTimeout, cond.State, cond.Selector)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check %q is enabled: %w", cond.Selector, err)
		}
		return []Element{&playwrightElement{locator: first}}, nil
	}

	return collect(locator)
}

func (s *playwrightSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collect(s.page.Locator(selector))
}

// Close tears down page context, browser and driver process. Only the first
// call does any work; later calls return the first result.
func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error

		if s.context != nil {
			if err := s.context.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close context: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
			}
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
			}
		}

		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

type playwrightElement struct {
	locator playwright.Locator
}

func (e *playwrightElement) FindOne(selector string) (Element, error) {
	scoped := e.locator.Locator(selector)

	count, err := scoped.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count %q: %w", selector, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %q", ErrElementNotFound, selector)
	}

	return &playwrightElement{locator: scoped.First()}, nil
}

func (e *playwrightElement) Text() (string, error) {
	text, err := e.locator.InnerText()
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return NormalizeText(text), nil
}

func (e *playwrightElement) Click() error {
	if err := e.locator.Click(); err != nil {
		return fmt.Errorf("failed to click: %w", err)
	}
	return nil
}

// insideDisabled matches controls whose own node is enabled but sit inside a
// disabled button, e.g. the arrow icon of the last page's next button.
const insideDisabled = `el => el.closest('[disabled], [aria-disabled="true"]') !== null`

func clickable(locator playwright.Locator) (bool, error) {
	enabled, err := locator.IsEnabled()
	if err != nil || !enabled {
		return false, err
	}

	disabled, err := locator.Evaluate(insideDisabled, nil)
	if err != nil {
		return false, err
	}
	blocked, _ := disabled.(bool)
	return !blocked, nil
}

func collect(locator playwright.Locator) ([]Element, error) {
	all, err := locator.All()
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}

	elements := make([]Element, 0, len(all))
	for _, l := range all {
		elements = append(elements, &playwrightElement{locator: l})
	}
	return elements, nil
}

// milliseconds converts d for playwright, where a zero timeout means "wait
// forever"; non-positive durations become the smallest real timeout instead.
func milliseconds(d time.Duration) *float64 {
	ms := float64(d.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}
