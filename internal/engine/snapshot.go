package engine

import (
	"strconv"
	"time"

	"siteguard/internal/alerts"
	"siteguard/internal/dashboard"
	"siteguard/internal/ingest"
	"siteguard/internal/model"
	"siteguard/internal/normalize"
	"siteguard/internal/sitemetrics"
)

// Snapshot is the derived, display-ready view of one refresh. It is never
// modified after it is built; At returns an updated copy.
type Snapshot struct {
	RefreshID   string                 `json:"refreshId"`
	Source      string                 `json:"source"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Sites       []model.NormalizedSite `json:"sites"`
	Alerts      []model.MergedAlert    `json:"alerts"`
	Summary     model.DashboardSummary `json:"summary"`
	Diagnostics []model.Diagnostic     `json:"diagnostics"`
}

// Derive runs the decoder and the four core transformations over a raw
// snapshot. Per-record failures become diagnostics; a ComputationError is
// returned as an error.
func Derive(raw *ingest.Snapshot, dec *normalize.Decoder, scope *ScopeSet, now time.Time) (*Snapshot, error) {
	diags := make([]model.Diagnostic, 0)

	rawSites := make([]model.RawSite, 0, len(raw.Sites))
	names := make(map[string]string, len(raw.Sites))
	for i, rec := range raw.Sites {
		site, err := dec.Site(rec)
		if err != nil {
			diags = append(diags, model.DiagnosticFrom("site", recordID(rec, i), err))
			continue
		}
		if !scope.Allows(site.ID) {
			continue
		}
		names[site.ID] = site.Name
		rawSites = append(rawSites, site)
	}
	sites, siteDiags, err := sitemetrics.TransformAll(rawSites, now)
	if err != nil {
		return nil, err
	}
	diags = append(diags, siteDiags...)
	kept := make(map[string]struct{}, len(sites))
	for _, s := range sites {
		kept[s.OriginalID] = struct{}{}
	}

	siteAlerts := make([]model.SiteAlerts, 0, len(raw.Alerts))
	for _, rec := range raw.Alerts {
		sa, alertDiags := dec.SiteAlerts(rec)
		if !scope.Allows(sa.SiteID) {
			continue
		}
		// Alerts carried inside a rejected site record go with it.
		if _, ok := kept[sa.SiteID]; raw.Embedded && !ok {
			diags = append(diags, model.Diagnostic{Kind: "alert", Record: sa.SiteID, Message: "site record rejected, embedded alerts dropped"})
			continue
		}
		diags = append(diags, alertDiags...)
		if sa.SiteName == "" {
			sa.SiteName = names[sa.SiteID]
		}
		siteAlerts = append(siteAlerts, sa)
	}
	merged, mergeDiags := alerts.MergeSites(siteAlerts)
	diags = append(diags, mergeDiags...)
	merged = alerts.WithAge(merged, now)

	return &Snapshot{
		Source:      raw.Source,
		GeneratedAt: now,
		Sites:       sites,
		Alerts:      merged,
		Summary:     dashboard.Build(sites, alerts.Counts(merged)),
		Diagnostics: diags,
	}, nil
}

// At returns a copy whose relative times are computed against now.
func (s *Snapshot) At(now time.Time) *Snapshot {
	out := *s
	out.Sites = sitemetrics.Refresh(s.Sites, now)
	out.Alerts = alerts.WithAge(s.Alerts, now)
	return &out
}

func (s *Snapshot) Site(id string) (model.NormalizedSite, error) {
	return sitemetrics.Find(s.Sites, id)
}

// FilterAlerts returns the merged feed filtered by severity and, when siteID
// is set, by site. An unknown siteID is a NotFoundError.
func (s *Snapshot) FilterAlerts(sev model.Severity, siteID string) ([]model.MergedAlert, error) {
	list := s.Alerts
	if siteID != "" {
		site, err := s.Site(siteID)
		if err != nil {
			return nil, err
		}
		list = alerts.ForSite(list, site.OriginalID)
	}
	return alerts.Filter(list, sev), nil
}

func recordID(rec map[string]any, index int) string {
	for _, k := range []string{"id", "siteId", "site_id"} {
		if v, ok := rec[k].(string); ok && v != "" {
			return v
		}
	}
	return "#" + strconv.Itoa(index)
}
