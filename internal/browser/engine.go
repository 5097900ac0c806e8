// Package browser defines the automation engine the scraper drives and
// provides its playwright-backed implementation.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrWaitTimeout is returned by Session.WaitFor when the condition did not
	// hold within the given timeout.
	ErrWaitTimeout = errors.New("wait timed out")
	// ErrElementNotFound is returned by Element.FindOne when nothing inside the
	// element matches the selector.
	ErrElementNotFound = errors.New("element not found")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// State is the element state a Condition waits for.
type State int

const (
	// StatePresent holds once at least one matching element is attached to the page.
	StatePresent State = iota
	// StateClickable holds once the first matching element is visible and enabled.
	StateClickable
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateClickable:
		return "clickable"
	default:
		return "unknown"
	}
}

type Condition struct {
	Selector string
	State    State
}

func Present(selector string) Condition {
	return Condition{Selector: selector, State: StatePresent}
}

func Clickable(selector string) Condition {
	return Condition{Selector: selector, State: StateClickable}
}

// Driver launches automation sessions.
type Driver interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one live automation context showing one page at a time.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until cond holds or timeout elapses. For StatePresent it
	// returns every matching element in document order; for StateClickable it
	// returns the first match only.
	WaitFor(ctx context.Context, cond Condition, timeout time.Duration) ([]Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	Close() error
}

// Element is a handle to a node on the current page.
type Element interface {
	// FindOne looks up the first match of selector within this element's subtree.
	FindOne(selector string) (Element, error)
	// Text returns the rendered text with surrounding whitespace trimmed and
	// inner whitespace runs collapsed to single spaces.
	Text() (string, error)
	Click() error
}

// NormalizeText trims s and collapses every whitespace run to one space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
