// Package replay implements browser.Driver over saved HTML snapshots of a
// listing. Page N of the listing is the N-th snapshot in name order, and
// every click on the page moves the session to the following snapshot.
package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/listing-scraper/internal/browser"
)

var (
	ErrNoSnapshots = errors.New("no snapshots to replay")
	ErrNoNextPage  = errors.New("no snapshot after the current page")
	ErrNotLoaded   = errors.New("no page loaded")
)

type Snapshot struct {
	Name string
	HTML string
}

type Driver struct {
	snapshots []Snapshot
}

// NewDriver loads every *.html and *.htm file in dir, ordered by file name.
func NewDriver(dir string) (*Driver, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".html" || ext == ".htm" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	snapshots := make([]Snapshot, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot %s: %w", name, err)
		}
		snapshots = append(snapshots, Snapshot{Name: name, HTML: string(data)})
	}

	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshots, dir)
	}

	return &Driver{snapshots: snapshots}, nil
}

func NewDriverFromSnapshots(snapshots ...Snapshot) *Driver {
	return &Driver{snapshots: snapshots}
}

func (d *Driver) Len() int {
	return len(d.snapshots)
}

func (d *Driver) Launch(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.snapshots) == 0 {
		return nil, ErrNoSnapshots
	}
	return &session{snapshots: d.snapshots, index: -1}, nil
}

type session struct {
	snapshots []Snapshot
	index     int
	doc       *goquery.Document
	closed    bool
}

// Navigate loads the first snapshot; the URL only labels the run.
func (s *session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return browser.ErrSessionClosed
	}
	return s.load(0)
}

// WaitFor evaluates cond once. A snapshot never changes, so a condition that
// does not hold now would not hold after the timeout either. On the last
// snapshot nothing is clickable, since a click would have nowhere to go.
func (s *session) WaitFor(ctx context.Context, cond browser.Condition, timeout time.Duration) ([]browser.Element, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	matches := s.doc.Find(cond.Selector)
	if matches.Length() == 0 {
		return nil, fmt.Errorf("%w: %s %q", browser.ErrWaitTimeout, cond.State, cond.Selector)
	}

	if cond.State == browser.StateClickable {
		first := matches.First()
		if disabled(first) || s.index+1 >= len(s.snapshots) {
			return nil, fmt.Errorf("%w: %s %q", browser.ErrWaitTimeout, cond.State, cond.Selector)
		}
		return []browser.Element{&element{sel: first, session: s}}, nil
	}

	return s.wrap(matches), nil
}

func (s *session) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.wrap(s.doc.Find(selector)), nil
}

func (s *session) Close() error {
	s.closed = true
	s.doc = nil
	return nil
}

func (s *session) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return browser.ErrSessionClosed
	}
	if s.doc == nil {
		return ErrNotLoaded
	}
	return nil
}

func (s *session) load(index int) error {
	snapshot := s.snapshots[index]

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot.HTML))
	if err != nil {
		return fmt.Errorf("failed to parse snapshot %s: %w", snapshot.Name, err)
	}

	s.index = index
	s.doc = doc
	return nil
}

func (s *session) advance() error {
	if s.closed {
		return browser.ErrSessionClosed
	}
	if s.index+1 >= len(s.snapshots) {
		return fmt.Errorf("%w (page %d of %d)", ErrNoNextPage, s.index+1, len(s.snapshots))
	}
	return s.load(s.index + 1)
}

func (s *session) wrap(matches *goquery.Selection) []browser.Element {
	elements := make([]browser.Element, 0, matches.Length())
	matches.Each(func(_ int, sel *goquery.Selection) {
		elements = append(elements, &element{sel: sel, session: s})
	})
	return elements
}

type element struct {
	sel     *goquery.Selection
	session *session
}

func (e *element) FindOne(selector string) (browser.Element, error) {
	found := e.sel.Find(selector)
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", browser.ErrElementNotFound, selector)
	}
	return &element{sel: found.First(), session: e.session}, nil
}

func (e *element) Text() (string, error) {
	return browser.NormalizeText(e.sel.Text()), nil
}

func (e *element) Click() error {
	if disabled(e.sel) {
		return errors.New("element is disabled")
	}
	return e.session.advance()
}

// disabled reports whether sel or one of its ancestors is marked disabled,
// natively or through aria-disabled, which is how the pagination widget marks
// its last page.
func disabled(sel *goquery.Selection) bool {
	return sel.Closest(`[disabled], [aria-disabled="true"]`).Length() > 0
}
