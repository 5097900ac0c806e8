package scraper

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/listing-scraper/internal/replay"
	"github.com/maltedev/listing-scraper/internal/storage"
)

func TestRun_ReplaySnapshotsToCSV(t *testing.T) {
	tests := []struct {
		name      string
		pages     int
		wantSizes []int
		lastPage  bool
	}{
		{name: "exact page count", pages: 3, wantSizes: []int{2, 2, 0}},
		{name: "more pages than the listing has", pages: 5, wantSizes: []int{2, 2, 0}, lastPage: true},
		{name: "first page only", pages: 1, wantSizes: []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, err := replay.NewDriver(filepath.Join("testdata", "daraz"))
			require.NoError(t, err)

			out := filepath.Join(t.TempDir(), "daraz_products.csv")
			sink := storage.NewCSVSink(out)
			p, _, _ := newTestScraper(driver, sink)

			report := p.Run(context.Background(), testURL, tt.pages)

			require.NoError(t, report.Err)
			assert.Equal(t, tt.wantSizes, report.BatchSizes)
			assert.Equal(t, tt.lastPage, report.LastPageReached)

			f, err := os.Open(out)
			require.NoError(t, err)
			defer f.Close()
			rows, err := csv.NewReader(f).ReadAll()
			require.NoError(t, err)

			want := [][]string{
				{"Samsung Galaxy A15 6GB 128GB", "Rs. 44,999", "1.2K sold"},
				{"Infinix Hot 40i 8GB 256GB", "Rs. 31,499", "356 sold"},
				{"Tecno Spark 20C 4GB 128GB", "Rs. 25,999", "87 sold"},
				{"Vivo Y03 4GB 64GB", "Rs. 23,999", "41 sold"},
			}
			total := 0
			for _, n := range tt.wantSizes {
				total += n
			}
			assert.Equal(t, want[:total], rows)
		})
	}
}

func TestRun_ReplayPartialListingEndsOnLastSnapshot(t *testing.T) {
	var snapshots []replay.Snapshot
	for _, name := range []string{"page-1.html", "page-2.html"} {
		data, err := os.ReadFile(filepath.Join("testdata", "daraz", name))
		require.NoError(t, err)
		snapshots = append(snapshots, replay.Snapshot{Name: name, HTML: string(data)})
	}

	sink := &recordingSink{}
	p, _, _ := newTestScraper(replay.NewDriverFromSnapshots(snapshots...), sink)

	report := p.Run(context.Background(), testURL, 3)

	require.NoError(t, report.Err)
	assert.Equal(t, StatusCompleted, report.Status())
	assert.True(t, report.LastPageReached)
	assert.Equal(t, []int{2, 2}, report.BatchSizes)
	assert.Equal(t, []int{2, 2}, sink.sizes())
}
