package model

import "time"

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	// SeverityAll is only valid as a filter value.
	SeverityAll Severity = "all"
)

// Severities lists the buckets in merge order.
var Severities = []Severity{SeverityCritical, SeverityWarning, SeverityInfo}

func ParseSeverity(value string) (Severity, error) {
	switch s := Severity(value); s {
	case SeverityCritical, SeverityWarning, SeverityInfo, SeverityAll:
		return s, nil
	case "":
		return SeverityAll, nil
	default:
		return "", &ValidationError{Record: "filter", Field: "severity", Reason: "unknown severity " + value}
	}
}

type AlertCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Coordinates are [lng, lat].
type Coordinates [2]float64

type RawSite struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Location    string       `json:"location"`
	RiskLevel   string       `json:"riskLevel"`
	RiskScore   float64      `json:"riskScore"`
	Compliance  float64      `json:"compliance"`
	Workers     int          `json:"workers"`
	AICameras   int          `json:"aiCameras"`
	LastCheck   time.Time    `json:"lastCheck"`
	AlertCounts AlertCounts  `json:"alertCounts"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type NormalizedSite struct {
	ID              int          `json:"id"`
	OriginalID      string       `json:"originalId"`
	Name            string       `json:"name"`
	Location        string       `json:"location"`
	RiskLevel       string       `json:"riskLevel"`
	RiskScore       float64      `json:"riskScore"`
	Compliance      float64      `json:"compliance"`
	Workers         int          `json:"workers"`
	AICameras       int          `json:"aiCameras"`
	LastCheck       time.Time    `json:"lastCheck"`
	AlertCounts     AlertCounts  `json:"alertCounts"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	Status          string       `json:"status"`
	ColorClass      string       `json:"colorClass"`
	RiskColor       string       `json:"riskColor"`
	RiskClass       string       `json:"riskClass"`
	ComplianceClass string       `json:"complianceClass"`
	Violations      int          `json:"violations"`
	PremiumImpact   int          `json:"premiumImpact"`
	PremiumMonthly  int          `json:"premiumMonthly"`
	LastInspection  string       `json:"lastInspection"`
}

type RawAlert struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	EmailSent   string    `json:"emailSent,omitempty"`
}

type Buckets struct {
	Critical []RawAlert `json:"critical"`
	Warning  []RawAlert `json:"warning"`
	Info     []RawAlert `json:"info"`
}

func (b Buckets) Bucket(sev Severity) []RawAlert {
	switch sev {
	case SeverityCritical:
		return b.Critical
	case SeverityWarning:
		return b.Warning
	case SeverityInfo:
		return b.Info
	}
	return nil
}

func (b Buckets) Counts() AlertCounts {
	c := AlertCounts{Critical: len(b.Critical), Warning: len(b.Warning), Info: len(b.Info)}
	c.Total = c.Critical + c.Warning + c.Info
	return c
}

type SiteAlerts struct {
	SiteID   string  `json:"id"`
	SiteName string  `json:"name"`
	Alerts   Buckets `json:"alerts"`
}

type MergedAlert struct {
	RawAlert
	Severity          Severity `json:"severity"`
	SiteID            string   `json:"siteId,omitempty"`
	SiteName          string   `json:"siteName,omitempty"`
	Label             string   `json:"label"`
	Icon              string   `json:"icon"`
	ConfidencePercent int      `json:"confidencePercent"`
	Age               string   `json:"age,omitempty"`
	AgeShort          string   `json:"ageShort,omitempty"`
}

type AlertTotals struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

type DashboardSummary struct {
	TotalSites        int         `json:"totalSites"`
	TotalWorkers      int         `json:"totalWorkers"`
	TotalCameras      int         `json:"totalCameras"`
	AverageRiskScore  float64     `json:"averageRiskScore"`
	AverageCompliance float64     `json:"averageCompliance"`
	Alerts            AlertTotals `json:"alerts"`
}

// Diagnostic records a record that was skipped during a refresh.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Record  string `json:"record"`
	Message string `json:"message"`
}
