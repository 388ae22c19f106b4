// Package sitemetrics derives display metrics from raw site telemetry.
package sitemetrics

import (
	"errors"
	"math"
	"strconv"
	"time"

	"siteguard/internal/model"
	"siteguard/internal/timefmt"
)

type riskStyle struct {
	status     string
	colorClass string
	hex        string
}

var riskStyles = map[string]riskStyle{
	"High":     {status: "High Risk", colorClass: "danger", hex: "#dc3545"},
	"Moderate": {status: "Moderate", colorClass: "warning", hex: "#fd7e14"},
	"Low":      {status: "Low Risk", colorClass: "success", hex: "#28a745"},
}

const (
	defaultColorClass = "secondary"
	defaultRiskColor  = "#6c757d"
)

// Validate checks the numeric ranges of a raw site.
func Validate(raw model.RawSite) error {
	switch {
	case raw.Workers < 0:
		return &model.ValidationError{Record: raw.ID, Field: "workers", Reason: "must be >= 0"}
	case raw.AICameras < 0:
		return &model.ValidationError{Record: raw.ID, Field: "aiCameras", Reason: "must be >= 0"}
	case !(raw.RiskScore >= 0 && raw.RiskScore <= 10):
		return &model.ValidationError{Record: raw.ID, Field: "riskScore", Reason: "must be within [0,10], got " + formatFloat(raw.RiskScore)}
	case !(raw.Compliance >= 0 && raw.Compliance <= 100):
		return &model.ValidationError{Record: raw.ID, Field: "compliance", Reason: "must be within [0,100], got " + formatFloat(raw.Compliance)}
	}
	c := raw.AlertCounts
	if c.Critical < 0 || c.Warning < 0 || c.Info < 0 || c.Total < 0 {
		return &model.ValidationError{Record: raw.ID, Field: "alertCounts", Reason: "counts must be >= 0"}
	}
	if c.Total != c.Critical+c.Warning+c.Info {
		return &model.ValidationError{Record: raw.ID, Field: "alertCounts", Reason: "total does not equal critical+warning+info"}
	}
	return nil
}

// Transform normalizes one site. now drives the lastInspection text.
func Transform(raw model.RawSite, now time.Time) (model.NormalizedSite, error) {
	if err := Validate(raw); err != nil {
		return model.NormalizedSite{}, err
	}
	premium, err := PremiumImpact(raw.RiskScore)
	if err != nil {
		return model.NormalizedSite{}, err
	}
	style, ok := riskStyles[raw.RiskLevel]
	if !ok {
		style = riskStyle{status: raw.RiskLevel, colorClass: defaultColorClass, hex: defaultRiskColor}
	}
	return model.NormalizedSite{
		OriginalID:      raw.ID,
		Name:            raw.Name,
		Location:        raw.Location,
		RiskLevel:       raw.RiskLevel,
		RiskScore:       raw.RiskScore,
		Compliance:      raw.Compliance,
		Workers:         raw.Workers,
		AICameras:       raw.AICameras,
		LastCheck:       raw.LastCheck,
		AlertCounts:     raw.AlertCounts,
		Coordinates:     raw.Coordinates,
		Status:          style.status,
		ColorClass:      style.colorClass,
		RiskColor:       style.hex,
		RiskClass:       RiskClass(raw.RiskScore),
		ComplianceClass: ComplianceClass(raw.Compliance),
		Violations:      Violations(raw.AlertCounts.Critical, raw.AlertCounts.Warning),
		PremiumImpact:   premium,
		PremiumMonthly:  premium * 1000,
		LastInspection:  timefmt.Format(raw.LastCheck, now),
	}, nil
}

// TransformAll normalizes a batch. Sites failing validation are skipped and
// reported as diagnostics; a ComputationError aborts the batch. Display ids
// are assigned sequentially from 1 over the sites that were kept.
func TransformAll(raws []model.RawSite, now time.Time) ([]model.NormalizedSite, []model.Diagnostic, error) {
	out := make([]model.NormalizedSite, 0, len(raws))
	var diags []model.Diagnostic
	for _, raw := range raws {
		site, err := Transform(raw, now)
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				diags = append(diags, model.DiagnosticFrom("site", raw.ID, err))
				continue
			}
			return nil, diags, err
		}
		site.ID = len(out) + 1
		out = append(out, site)
	}
	return out, diags, nil
}

// Refresh recomputes the time-dependent fields of already normalized sites.
func Refresh(sites []model.NormalizedSite, now time.Time) []model.NormalizedSite {
	out := make([]model.NormalizedSite, len(sites))
	for i, s := range sites {
		s.LastInspection = timefmt.Format(s.LastCheck, now)
		out[i] = s
	}
	return out
}

// Find looks a site up by its backend id or, failing that, its display id.
func Find(sites []model.NormalizedSite, id string) (model.NormalizedSite, error) {
	for _, s := range sites {
		if s.OriginalID == id {
			return s, nil
		}
	}
	if n, err := strconv.Atoi(id); err == nil {
		for _, s := range sites {
			if s.ID == n {
				return s, nil
			}
		}
	}
	return model.NormalizedSite{}, &model.NotFoundError{Kind: "site", ID: id}
}

func Violations(critical, warning int) int {
	return critical + warning/2
}

// PremiumImpact is the signed premium change in percent for a risk score.
func PremiumImpact(riskScore float64) (int, error) {
	var v float64
	switch {
	case riskScore > 7:
		v = math.Floor(riskScore * 2)
	case riskScore > 5:
		v = math.Floor(riskScore - 5)
	default:
		v = -math.Floor((10 - riskScore) * 1.5)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &model.ComputationError{Field: "premiumImpact", Value: riskScore}
	}
	return int(v), nil
}

func RiskClass(riskScore float64) string {
	switch {
	case riskScore > 7:
		return "high"
	case riskScore > 5:
		return "medium"
	default:
		return "low"
	}
}

func ComplianceClass(compliance float64) string {
	switch {
	case compliance > 90:
		return "excellent"
	case compliance > 80:
		return "good"
	default:
		return "poor"
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
