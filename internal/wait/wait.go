// Package wait provides the two synchronisation primitives used while driving
// a page: a poll-until-predicate wait bounded by a timeout, and a fixed settle
// delay for content that gives no readiness signal.
package wait

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is the polling interval used when Until is given a zero interval.
const DefaultInterval = 100 * time.Millisecond

var ErrTimeout = errors.New("condition not met before timeout")

// Condition reports whether the awaited state has been reached. A non-nil
// error aborts the wait immediately.
type Condition func() (bool, error)

// Until evaluates cond until it returns true, cond fails, the timeout elapses
// or ctx is done. The condition is always evaluated at least once.
func Until(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if !time.Now().Before(deadline) {
			return ErrTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sleep pauses for d unless ctx is done first. A non-positive d returns
// immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
