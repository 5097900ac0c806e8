package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/maltedev/listing-scraper/internal/models"
)

// DefaultHeader names the columns of a listing row.
var DefaultHeader = []string{"name", "price", "sold"}

// CSVSink appends listing rows to a UTF-8 CSV file. The file is opened for
// each batch and closed again afterwards; existing content is never truncated.
type CSVSink struct {
	path   string
	header []string
	mu     sync.Mutex
}

type CSVOption func(*CSVSink)

// WithHeader writes header as the first row when the file is empty.
func WithHeader(header ...string) CSVOption {
	return func(s *CSVSink) {
		s.header = header
	}
}

func NewCSVSink(path string, opts ...CSVOption) *CSVSink {
	s := &CSVSink{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CSVSink) Path() string {
	return s.path
}

func (s *CSVSink) Write(ctx context.Context, batch *models.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureDir(s.path); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}

	if err := s.writeRows(f, batch); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv file: %w", err)
	}
	return nil
}

func (s *CSVSink) writeRows(f *os.File, batch *models.Batch) error {
	writer := csv.NewWriter(f)

	if len(s.header) > 0 {
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat csv file: %w", err)
		}
		if info.Size() == 0 {
			if err := writer.Write(s.header); err != nil {
				return fmt.Errorf("write csv header: %w", err)
			}
		}
	}

	if batch != nil {
		for _, listing := range batch.Listings {
			if err := writer.Write(listing.Row()); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
