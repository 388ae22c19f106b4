// Package alerts merges severity-bucketed site alerts into one feed.
package alerts

import (
	"math"
	"sort"
	"strings"
	"time"

	"siteguard/internal/model"
	"siteguard/internal/timefmt"
)

// Merge flattens a single site's buckets. Elements carry their severity but
// no site identity.
func Merge(buckets model.Buckets) ([]model.MergedAlert, []model.Diagnostic) {
	m := newMerger()
	m.addSite("", "", buckets, false)
	return m.sorted(), m.diags
}

// MergeSites flattens the buckets of every site and tags each element with
// its site id and name.
func MergeSites(sites []model.SiteAlerts) ([]model.MergedAlert, []model.Diagnostic) {
	m := newMerger()
	for _, s := range sites {
		m.addSite(s.SiteID, s.SiteName, s.Alerts, true)
	}
	return m.sorted(), m.diags
}

type merger struct {
	out   []model.MergedAlert
	diags []model.Diagnostic
	seen  *seenSet
}

func newMerger() *merger {
	return &merger{seen: newSeenSet()}
}

func (m *merger) addSite(siteID, siteName string, buckets model.Buckets, tagSite bool) {
	for _, sev := range model.Severities {
		for _, a := range buckets.Bucket(sev) {
			record := recordName(siteID, sev, a.ID)
			if a.Timestamp.IsZero() {
				m.diags = append(m.diags, model.Diagnostic{Kind: "alert", Record: record, Message: "missing timestamp"})
				continue
			}
			if strings.TrimSpace(a.Type) == "" {
				m.diags = append(m.diags, model.Diagnostic{Kind: "alert", Record: record, Message: "missing type"})
				continue
			}
			if a.ID != "" && m.seen.Seen(record) {
				m.diags = append(m.diags, model.Diagnostic{Kind: "alert", Record: record, Message: "duplicate alert id"})
				continue
			}
			merged := model.MergedAlert{
				RawAlert:          a,
				Severity:          sev,
				Label:             model.AlertLabel(a.Type),
				Icon:              model.AlertIcon(a.Type),
				ConfidencePercent: int(math.Round(a.Confidence * 100)),
			}
			if tagSite {
				merged.SiteID = siteID
				merged.SiteName = siteName
			}
			m.out = append(m.out, merged)
		}
	}
}

// sorted orders by timestamp descending. The sort is stable so equal
// timestamps keep encounter order: site order, then critical, warning, info,
// then position within the bucket.
func (m *merger) sorted() []model.MergedAlert {
	out := m.out
	if out == nil {
		out = []model.MergedAlert{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func recordName(siteID string, sev model.Severity, id string) string {
	if siteID == "" {
		return string(sev) + "/" + id
	}
	return siteID + "/" + string(sev) + "/" + id
}

// Filter returns the elements of merged with the given severity, or a copy
// of all of them for SeverityAll. merged is never modified.
func Filter(merged []model.MergedAlert, sev model.Severity) []model.MergedAlert {
	out := make([]model.MergedAlert, 0, len(merged))
	for _, a := range merged {
		if sev == model.SeverityAll || a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}

// ForSite returns the elements of merged tagged with siteID.
func ForSite(merged []model.MergedAlert, siteID string) []model.MergedAlert {
	out := make([]model.MergedAlert, 0)
	for _, a := range merged {
		if a.SiteID == siteID {
			out = append(out, a)
		}
	}
	return out
}

// WithAge returns a copy of merged with relative ages computed against now.
func WithAge(merged []model.MergedAlert, now time.Time) []model.MergedAlert {
	out := make([]model.MergedAlert, len(merged))
	for i, a := range merged {
		a.Age = timefmt.Format(a.Timestamp, now)
		a.AgeShort = timefmt.Short(a.Timestamp, now)
		out[i] = a
	}
	return out
}

func Counts(merged []model.MergedAlert) model.AlertCounts {
	var c model.AlertCounts
	for _, a := range merged {
		switch a.Severity {
		case model.SeverityCritical:
			c.Critical++
		case model.SeverityWarning:
			c.Warning++
		case model.SeverityInfo:
			c.Info++
		}
	}
	c.Total = len(merged)
	return c
}
