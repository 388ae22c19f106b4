// Package report renders a snapshot as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"siteguard/internal/engine"
)

const (
	SitesSheet   = "Sites"
	AlertsSheet  = "Alerts"
	SummarySheet = "Summary"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var SitesHeader = []string{
	"ID", "Site ID", "Name", "Location", "Status", "Risk Score", "Compliance %",
	"Workers", "Cameras", "Violations", "Premium Impact", "Last Inspection",
}

var AlertsHeader = []string{
	"Time", "Severity", "Site", "Type", "Confidence %", "Description",
}

var sitesWidths = []float64{6, 14, 24, 20, 10, 11, 13, 9, 9, 11, 15, 16}
var alertsWidths = []float64{20, 10, 24, 26, 13, 48}

type sheet struct {
	name   string
	header []string
	widths []float64
	rows   [][]any
}

// WriteWorkbook writes the Summary, Sites and Alerts sheets for snap to w.
func WriteWorkbook(w io.Writer, snap *engine.Snapshot, title string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummary(f, snap, title, headerStyle); err != nil {
		return err
	}
	for _, s := range []sheet{sitesSheet(snap), alertsSheet(snap)} {
		if err := writeTable(f, s, headerStyle); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(SummarySheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func sitesSheet(snap *engine.Snapshot) sheet {
	rows := make([][]any, 0, len(snap.Sites))
	for _, s := range snap.Sites {
		rows = append(rows, []any{
			s.ID, s.OriginalID, s.Name, s.Location, s.Status, s.RiskScore, s.Compliance,
			s.Workers, s.AICameras, s.Violations, s.PremiumImpact, s.LastInspection,
		})
	}
	return sheet{name: SitesSheet, header: SitesHeader, widths: sitesWidths, rows: rows}
}

func alertsSheet(snap *engine.Snapshot) sheet {
	rows := make([][]any, 0, len(snap.Alerts))
	for _, a := range snap.Alerts {
		rows = append(rows, []any{
			a.Timestamp.UTC().Format(time.DateTime), string(a.Severity), a.SiteName,
			a.Label, a.ConfidencePercent, a.Description,
		})
	}
	return sheet{name: AlertsSheet, header: AlertsHeader, widths: alertsWidths, rows: rows}
}

func writeTable(f *excelize.File, s sheet, headerStyle int) error {
	if _, err := f.NewSheet(s.name); err != nil {
		return fmt.Errorf("create sheet %s: %w", s.name, err)
	}
	if err := writeRow(f, s.name, 1, toAny(s.header)); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}
	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	for i, row := range s.rows {
		if err := writeRow(f, s.name, i+2, row); err != nil {
			return err
		}
	}
	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummary(f *excelize.File, snap *engine.Snapshot, title string, headerStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", SummarySheet, err)
	}
	sum := snap.Summary
	rows := [][]any{
		{title, ""},
		{"Generated", snap.GeneratedAt.UTC().Format(time.DateTime)},
		{"Source", snap.Source},
		{"Total sites", sum.TotalSites},
		{"Total workers", sum.TotalWorkers},
		{"Total cameras", sum.TotalCameras},
		{"Average risk score", sum.AverageRiskScore},
		{"Average compliance %", sum.AverageCompliance},
		{"Alerts", sum.Alerts.Total},
		{"Critical", sum.Alerts.Critical},
		{"Warning", sum.Alerts.Warning},
		{"Info", sum.Alerts.Info},
		{"Skipped records", len(snap.Diagnostics)},
	}
	for i, row := range rows {
		if err := writeRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.MergeCell(SummarySheet, "A1", "B1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("set title style: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 22); err != nil {
		return err
	}
	return nil
}

func writeRow(f *excelize.File, name string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(name, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", name, row, err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
