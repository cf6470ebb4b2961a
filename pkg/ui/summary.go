package ui

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"storereviews/pkg/models"
)

// NewTable returns a table writer with the rounded style used by every
// command
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// RenderReviewSummary prints one row per app and a total footer
func RenderReviewSummary(w io.Writer, summaries []models.AppScrapeSummary) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"#", "App", "Pages", "Reviews", "Scraped at"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	pages, reviews := 0, 0
	for i, s := range summaries {
		t.AppendRow(table.Row{i + 1, s.PackageName, s.NumberOfPages, s.NumberOfReviews, s.ScrapeTime.Format(time.RFC3339)})
		pages += s.NumberOfPages
		reviews += s.NumberOfReviews
	}
	t.AppendFooter(table.Row{"", "Total", pages, reviews, ""})
	t.Render()
}

// RenderMetadataSummary prints whether metadata was collected for each app
func RenderMetadataSummary(w io.Writer, records []models.AppMetadataRecord) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"#", "App", "Status"})

	for i, r := range records {
		status := "ok"
		if r.Results == nil {
			status = "failed"
		}
		t.AppendRow(table.Row{i + 1, r.App, status})
	}
	t.Render()
}
