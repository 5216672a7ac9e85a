// Package report renders exam status reports as Excel workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
)

const (
	statusSheet  = "Status"
	summarySheet = "Summary"
)

var statusHeader = []any{"Year", "Year Available", "Subject", "Questions", "Minimum", "Visible", "Status"}

// WriteStatus writes one row per (year, subject) of e, plus a per-status
// summary sheet, as an .xlsx workbook.
func WriteStatus(w io.Writer, e catalog.Exam) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", statusSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	if err := f.SetSheetRow(statusSheet, "A1", &statusHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(statusSheet, 1, 1, bold); err != nil {
		return err
	}

	totals := make(map[catalog.Status]int)
	for i, row := range e.StatusReport() {
		totals[row.Status]++
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{row.Year, yesNo(row.YearAvailable), row.Subject, row.QuestionCount, e.MinQuestionsPerSubject, yesNo(row.IsVisible), string(row.Status)}
		if err := f.SetSheetRow(statusSheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(statusSheet, "C", "C", 28); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	header := []any{e.Name, string(e.Category)}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(summarySheet, 1, 1, bold); err != nil {
		return err
	}
	for i, s := range catalog.Statuses {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{string(s), totals[s]}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
