package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"siteguard/internal/engine"
	"siteguard/internal/model"
)

func testSnapshot() *engine.Snapshot {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &engine.Snapshot{
		Source:      "file",
		GeneratedAt: now,
		Sites: []model.NormalizedSite{
			{ID: 1, OriginalID: "SITE_001", Name: "Harbor Tower", Location: "Pier 4", Status: "high", RiskScore: 8.1, Compliance: 78, Workers: 42, AICameras: 6, Violations: 3, PremiumImpact: 15, LastInspection: "1 hour ago"},
			{ID: 2, OriginalID: "SITE_002", Name: "Mill Yard", Location: "North", Status: "low", RiskScore: 2, Compliance: 96, Workers: 10, AICameras: 2},
		},
		Alerts: []model.MergedAlert{{
			RawAlert:          model.RawAlert{ID: "A1", Type: "NoHelmetDetected", Timestamp: now.Add(-10 * time.Minute), Description: "no helmet"},
			Severity:          model.SeverityCritical,
			SiteName:          "Harbor Tower",
			Label:             "No Helmet Detected",
			ConfidencePercent: 91,
		}},
		Summary: model.DashboardSummary{
			TotalSites: 2, TotalWorkers: 52, TotalCameras: 8, AverageRiskScore: 5.05, AverageCompliance: 87,
			Alerts: model.AlertTotals{Total: 1, Critical: 1},
		},
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, testSnapshot(), "Weekly Report"))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, SitesSheet, AlertsSheet}, f.GetSheetList())

	rows, err := f.GetRows(SitesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, SitesHeader, rows[0])
	assert.Equal(t, "SITE_001", rows[1][1])
	assert.Equal(t, "Harbor Tower", rows[1][2])

	rows, err = f.GetRows(AlertsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, AlertsHeader, rows[0])
	assert.Equal(t, "2026-03-01 11:50:00", rows[1][0])
	assert.Equal(t, "critical", rows[1][1])
	assert.Equal(t, "No Helmet Detected", rows[1][3])

	title, err := f.GetCellValue(SummarySheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Weekly Report", title)
	sites, err := f.GetCellValue(SummarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "2", sites)
}

func TestWriteWorkbookEmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, &engine.Snapshot{}, "Empty"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(AlertsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
