package preflight

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook saves a report as an XLSX workbook with a summary sheet and
// one row per issue, for review outside the terminal.
func WriteWorkbook(report *Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	const issueSheet = "Issues"

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(issueSheet); err != nil {
		return fmt.Errorf("failed to create issues sheet: %w", err)
	}

	summaryRows := [][]interface{}{
		{"Threshold", report.Stats.Threshold},
		{"Total records", report.Stats.TotalRecords},
		{"Cross-border records", report.Stats.CrossBorderRecords},
		{"Total payees", report.Stats.TotalPayees},
		{"Payees over threshold", report.Stats.PayeesOverThreshold},
		{"Errors", report.ErrorCount()},
		{"Warnings", report.WarningCount()},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	header := []interface{}{"Level", "Row", "Message"}
	if err := f.SetSheetRow(issueSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write issue header: %w", err)
	}
	for i, issue := range report.Issues {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{string(issue.Level), issue.Row, issue.Message}
		if err := f.SetSheetRow(issueSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write issue row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
