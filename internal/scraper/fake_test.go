package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/listing-scraper/internal/browser"
)

// fakePage is one page of a scripted listing. Each product maps a field
// selector to its text; a selector absent from the map is a missing field.
type fakePage struct {
	products []map[string]string
	hasNext  bool
	waitErr  error
	panicMsg string
}

func product(name, price, sold string) map[string]string {
	sel := DefaultSelectors()
	p := map[string]string{}
	if name != "" {
		p[sel.Name] = name
	}
	if price != "" {
		p[sel.Price] = price
	}
	if sold != "" {
		p[sel.Sold] = sold
	}
	return p
}

type fakeDriver struct {
	pages     []fakePage
	launchErr error
	navErr    error
	closeErr  error
	clickErr  error
	launches  int
	sessions  []*fakeSession
}

func (d *fakeDriver) Launch(ctx context.Context) (browser.Session, error) {
	d.launches++
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	s := &fakeSession{driver: d, waits: map[browser.State]int{}}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *fakeDriver) session() *fakeSession {
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

type fakeSession struct {
	driver    *fakeDriver
	index     int
	navigated []string
	waits     map[browser.State]int
	clicks    int
	closes    int
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	return s.driver.navErr
}

func (s *fakeSession) WaitFor(ctx context.Context, cond browser.Condition, timeout time.Duration) ([]browser.Element, error) {
	s.waits[cond.State]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := s.driver.pages[s.index]
	switch cond.State {
	case browser.StatePresent:
		if page.panicMsg != "" {
			panic(page.panicMsg)
		}
		if page.waitErr != nil {
			return nil, page.waitErr
		}
		if len(page.products) == 0 {
			return nil, fmt.Errorf("%w: %q", browser.ErrWaitTimeout, cond.Selector)
		}
		elements := make([]browser.Element, 0, len(page.products))
		for _, p := range page.products {
			elements = append(elements, &fakeElement{fields: p})
		}
		return elements, nil

	default:
		if !page.hasNext {
			return nil, fmt.Errorf("%w: %q", browser.ErrWaitTimeout, cond.Selector)
		}
		return []browser.Element{&fakeElement{click: s.click}}, nil
	}
}

func (s *fakeSession) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	return nil, errors.New("not used")
}

func (s *fakeSession) Close() error {
	s.closes++
	return s.driver.closeErr
}

func (s *fakeSession) click() error {
	s.clicks++
	if s.driver.clickErr != nil {
		return s.driver.clickErr
	}
	s.index++
	return nil
}

type fakeElement struct {
	fields map[string]string
	text   string
	click  func() error
}

func (e *fakeElement) FindOne(selector string) (browser.Element, error) {
	text, ok := e.fields[selector]
	if !ok {
		return nil, fmt.Errorf("%w: %q", browser.ErrElementNotFound, selector)
	}
	return &fakeElement{text: text}, nil
}

func (e *fakeElement) Text() (string, error) {
	return e.text, nil
}

func (e *fakeElement) Click() error {
	if e.click == nil {
		return errors.New("not clickable")
	}
	return e.click()
}
