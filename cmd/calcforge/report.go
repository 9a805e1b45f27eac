package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/calcforge/calcforge/internal/estimate"
)

// renderReport writes the run report to w in the requested format.
func renderReport(w io.Writer, report *estimate.Report, skipped []string, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*estimate.Report
			Skipped []string `json:"skipped_services,omitempty"`
		}{report, skipped})
	case "table", "":
		renderTable(w, report, skipped)
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderTable(w io.Writer, report *estimate.Report, skipped []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	title := "Estimate Report"
	if report.ProjectName != "" {
		title = fmt.Sprintf("Estimate Report: %s", report.ProjectName)
	}
	t.SetTitle(title)

	t.AppendHeader(table.Row{"#", "Service", "Status", "Detail"})
	for _, o := range report.Outcomes {
		detail := o.Error
		if o.Succeeded() {
			detail = "added to estimate"
		}
		t.AppendRow(table.Row{o.Ordinal + 1, o.ServiceType, statusCell(o), detail})
	}

	t.AppendFooter(table.Row{"", "", "succeeded",
		fmt.Sprintf("%d/%d", report.Overall.Succeeded, report.Overall.Total)})
	t.Render()

	if !report.MonthlyTotal.IsZero() {
		fmt.Fprintf(w, "Monthly total: $%s\n", report.MonthlyTotal.StringFixed(2))
	}
	if report.ShareURL != "" {
		fmt.Fprintf(w, "Share URL: %s\n", report.ShareURL)
	}
	if len(skipped) > 0 {
		fmt.Fprintf(w, "Skipped (no calculator form): %s\n", strings.Join(skipped, ", "))
	}
	fmt.Fprintf(w, "Run ID: %s\n", report.RunID)
}

func statusCell(o estimate.ItemOutcome) string {
	switch o.Status {
	case estimate.StatusSucceeded:
		return text.FgGreen.Sprint("ok")
	case estimate.StatusValidationFailed:
		return text.FgYellow.Sprintf("invalid (%s)", o.Reason)
	default:
		return text.FgRed.Sprintf("failed (%s)", o.Reason)
	}
}
