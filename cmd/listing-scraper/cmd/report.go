package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/maltedev/listing-scraper/internal/scraper"
)

func printReport(w io.Writer, report *scraper.Report, output string) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle("Scrape run %s", report.RunID)

	sizes := make([]string, 0, len(report.BatchSizes))
	for _, n := range report.BatchSizes {
		sizes = append(sizes, fmt.Sprint(n))
	}

	t.AppendRows([]table.Row{
		{"URL", report.URL},
		{"Status", report.Status()},
		{"Pages", fmt.Sprintf("%d of %d", report.PagesScraped, report.PagesRequested)},
		{"Records per page", strings.Join(sizes, ", ")},
		{"Records", report.Records},
		{"Skipped", report.Skipped},
		{"Last page reached", report.LastPageReached},
		{"Output", output},
		{"Duration", report.Duration().Round(time.Millisecond)},
	})
	if report.Err != nil {
		t.AppendRow(table.Row{"Error", report.Err.Error()})
	}

	t.Render()
}
