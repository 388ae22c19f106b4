// Package dashboard builds portfolio-level statistics over normalized sites.
package dashboard

import (
	"math"

	"siteguard/internal/model"
)

// Build computes the dashboard summary. counts may come from the merged alert
// feed (alerts.Counts) or from the sites themselves (CountsFromSites).
func Build(sites []model.NormalizedSite, counts model.AlertCounts) model.DashboardSummary {
	summary := model.DashboardSummary{
		Alerts: model.AlertTotals{
			Total:    counts.Total,
			Critical: counts.Critical,
			Warning:  counts.Warning,
			Info:     counts.Info,
		},
	}
	if len(sites) == 0 {
		return summary
	}
	var risk, compliance float64
	for _, s := range sites {
		summary.TotalWorkers += s.Workers
		summary.TotalCameras += s.AICameras
		risk += s.RiskScore
		compliance += s.Compliance
	}
	n := float64(len(sites))
	summary.TotalSites = len(sites)
	summary.AverageRiskScore = math.Round(risk/n*10) / 10
	summary.AverageCompliance = math.Round(compliance / n)
	return summary
}

// CountsFromSites sums the pre-aggregated per-site alert counts.
func CountsFromSites(sites []model.NormalizedSite) model.AlertCounts {
	var c model.AlertCounts
	for _, s := range sites {
		c.Critical += s.AlertCounts.Critical
		c.Warning += s.AlertCounts.Warning
		c.Info += s.AlertCounts.Info
		c.Total += s.AlertCounts.Total
	}
	return c
}
