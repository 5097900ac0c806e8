package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/maltedev/listing-scraper/internal/models"
)

// Sink receives every batch a run produces, one call per page.
type Sink interface {
	Write(ctx context.Context, batch *models.Batch) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ctx context.Context, batch *models.Batch) error

func (f SinkFunc) Write(ctx context.Context, batch *models.Batch) error {
	return f(ctx, batch)
}

// MultiSink writes each batch to all of its sinks in order. A failing sink
// does not stop the remaining ones.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Write(ctx context.Context, batch *models.Batch) error {
	var errs []error
	for i, sink := range m.sinks {
		if err := sink.Write(ctx, batch); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Len() int {
	return len(m.sinks)
}
