package kpi

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	detailSheet  = "Tickets"
	summarySheet = "Summary"
)

var detailColumns = []string{
	"Ticket Number", "Subject", "Category", "Priority", "Status", "Assignee",
	"Created", "Assigned At", "Resolved At", "Response (min)", "Resolution (min)", "Breached",
}

// ExportXLSX writes the report as a workbook with a summary sheet and one
// row per ticket.
func ExportXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(detailSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	summary := [][]any{
		{"Assigned tickets", report.Count},
		{"Average response (min)", report.AvgResponseMs / float64(time.Minute/time.Millisecond)},
		{"Average resolution (min)", report.AvgResolutionMs / float64(time.Minute/time.Millisecond)},
		{"Breached", report.Breached},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return err
	}

	for i, col := range detailColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(detailSheet, cell, col); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(detailColumns), 1)
	if err := f.SetCellStyle(detailSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, d := range report.Details {
		row := []any{
			d.TicketNumber, d.Subject, d.Category, d.Priority, d.Status, d.Assignee,
			formatTime(&d.Created), formatTime(d.AssignedAt), formatTime(d.ResolvedAt),
			minutes(d.ResponseMs), minutes(d.ResolutionMs), yesNo(d.Breached),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(detailSheet, cell, &row); err != nil {
			return err
		}
	}
	for i := range detailColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(detailSheet, col, col, 18); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func minutes(ms *int64) any {
	if ms == nil {
		return ""
	}
	return float64(*ms) / float64(time.Minute/time.Millisecond)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
