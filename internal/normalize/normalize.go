package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"siteguard/internal/model"
)

// Decoder turns loosely typed JSON records into the raw model types.
type Decoder struct {
	loc *time.Location
}

// NewDecoder returns a Decoder that reads zone-less timestamps in timezone.
// An empty or unknown timezone means UTC.
func NewDecoder(timezone string) *Decoder {
	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	return &Decoder{loc: loc}
}

func (d *Decoder) Site(rec map[string]any) (model.RawSite, error) {
	id := stringField(rec, "id", "siteId", "site_id")
	if id == "" {
		return model.RawSite{}, &model.ValidationError{Field: "id", Reason: "missing"}
	}
	site := model.RawSite{
		ID:        id,
		Name:      stringField(rec, "name", "siteName", "site_name"),
		Location:  stringField(rec, "location", "address"),
		RiskLevel: stringField(rec, "riskLevel", "risk_level"),
	}
	var err error
	if site.RiskScore, err = floatField(rec, id, "riskScore", "risk_score"); err != nil {
		return model.RawSite{}, err
	}
	if site.Compliance, err = floatField(rec, id, "compliance"); err != nil {
		return model.RawSite{}, err
	}
	if site.Workers, err = intField(rec, id, "workers"); err != nil {
		return model.RawSite{}, err
	}
	if site.AICameras, err = intField(rec, id, "aiCameras", "ai_cameras", "cameras"); err != nil {
		return model.RawSite{}, err
	}
	raw := stringField(rec, "lastCheck", "last_check")
	if raw == "" {
		return model.RawSite{}, &model.ValidationError{Record: id, Field: "lastCheck", Reason: "missing"}
	}
	if site.LastCheck, err = ParseTimestamp(raw, d.loc); err != nil {
		return model.RawSite{}, &model.ValidationError{Record: id, Field: "lastCheck", Reason: err.Error()}
	}
	site.LastCheck = site.LastCheck.UTC()
	if site.AlertCounts, err = d.alertCounts(rec, id); err != nil {
		return model.RawSite{}, err
	}
	if v, ok := lookup(rec, "coordinates", "coords"); ok {
		c, err := coordinates(v)
		if err != nil {
			return model.RawSite{}, &model.ValidationError{Record: id, Field: "coordinates", Reason: err.Error()}
		}
		site.Coordinates = c
	}
	return site, nil
}

// alertCounts reads alertCounts, deriving it from embedded alert buckets when
// absent. A missing total is computed; an inconsistent one is rejected.
func (d *Decoder) alertCounts(rec map[string]any, id string) (model.AlertCounts, error) {
	v, ok := lookup(rec, "alertCounts", "alert_counts")
	if !ok {
		if obj, ok := lookup(rec, "alerts"); ok {
			if m, ok := obj.(map[string]any); ok {
				return model.AlertCounts{
					Critical: listLen(m["critical"]),
					Warning:  listLen(m["warning"]),
					Info:     listLen(m["info"]),
					Total:    listLen(m["critical"]) + listLen(m["warning"]) + listLen(m["info"]),
				}, nil
			}
		}
		return model.AlertCounts{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return model.AlertCounts{}, &model.ValidationError{Record: id, Field: "alertCounts", Reason: "not an object"}
	}
	var c model.AlertCounts
	var err error
	if c.Critical, err = optionalInt(m, id, "alertCounts.critical", "critical"); err != nil {
		return c, err
	}
	if c.Warning, err = optionalInt(m, id, "alertCounts.warning", "warning"); err != nil {
		return c, err
	}
	if c.Info, err = optionalInt(m, id, "alertCounts.info", "info"); err != nil {
		return c, err
	}
	sum := c.Critical + c.Warning + c.Info
	if _, ok := m["total"]; !ok {
		c.Total = sum
		return c, nil
	}
	if c.Total, err = optionalInt(m, id, "alertCounts.total", "total"); err != nil {
		return c, err
	}
	if c.Total != sum {
		return c, &model.ValidationError{Record: id, Field: "alertCounts", Reason: fmt.Sprintf("total %d does not equal %d", c.Total, sum)}
	}
	return c, nil
}

func (d *Decoder) Alert(rec map[string]any) (model.RawAlert, error) {
	id := stringField(rec, "id", "alertId", "alert_id")
	a := model.RawAlert{
		ID:          id,
		Type:        stringField(rec, "type", "alertType", "alert_type"),
		Description: stringField(rec, "description", "message"),
		Image:       stringField(rec, "image", "imageUrl", "image_url"),
		EmailSent:   stringField(rec, "emailSent", "email_sent"),
	}
	if a.Type == "" {
		return model.RawAlert{}, &model.ValidationError{Record: id, Field: "type", Reason: "missing"}
	}
	raw := stringField(rec, "timestamp", "time", "ts")
	if raw == "" {
		return model.RawAlert{}, &model.ValidationError{Record: id, Field: "timestamp", Reason: "missing"}
	}
	ts, err := ParseTimestamp(raw, d.loc)
	if err != nil {
		return model.RawAlert{}, &model.ValidationError{Record: id, Field: "timestamp", Reason: err.Error()}
	}
	a.Timestamp = ts.UTC()
	if v, ok := lookup(rec, "confidence"); ok {
		f, ok := toFloat(v)
		if !ok || f < 0 || f > 1 {
			return model.RawAlert{}, &model.ValidationError{Record: id, Field: "confidence", Reason: "must be a number within [0,1]"}
		}
		a.Confidence = f
	}
	return a, nil
}

// SiteAlerts decodes a {id, name, alerts: {critical, warning, info}} record.
// Malformed alerts are dropped and reported.
func (d *Decoder) SiteAlerts(rec map[string]any) (model.SiteAlerts, []model.Diagnostic) {
	out := model.SiteAlerts{
		SiteID:   stringField(rec, "id", "siteId", "site_id"),
		SiteName: stringField(rec, "name", "siteName", "site_name"),
	}
	var diags []model.Diagnostic
	obj, _ := lookup(rec, "alerts")
	buckets, _ := obj.(map[string]any)
	for _, sev := range model.Severities {
		list, _ := buckets[string(sev)].([]any)
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				diags = append(diags, model.Diagnostic{Kind: "alert", Record: fmt.Sprintf("%s/%s/#%d", out.SiteID, sev, i), Message: "not an object"})
				continue
			}
			a, err := d.Alert(m)
			if err != nil {
				diags = append(diags, model.DiagnosticFrom("alert", fmt.Sprintf("%s/%s/%s", out.SiteID, sev, stringField(m, "id")), err))
				continue
			}
			switch sev {
			case model.SeverityCritical:
				out.Alerts.Critical = append(out.Alerts.Critical, a)
			case model.SeverityWarning:
				out.Alerts.Warning = append(out.Alerts.Warning, a)
			case model.SeverityInfo:
				out.Alerts.Info = append(out.Alerts.Info, a)
			}
		}
	}
	return out, diags
}

func lookup(rec map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(rec map[string]any, keys ...string) string {
	v, ok := lookup(rec, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func floatField(rec map[string]any, id string, keys ...string) (float64, error) {
	v, ok := lookup(rec, keys...)
	if !ok {
		return 0, &model.ValidationError{Record: id, Field: keys[0], Reason: "missing"}
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, &model.ValidationError{Record: id, Field: keys[0], Reason: fmt.Sprintf("not numeric: %v", v)}
	}
	return f, nil
}

func intField(rec map[string]any, id string, keys ...string) (int, error) {
	f, err := floatField(rec, id, keys...)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, &model.ValidationError{Record: id, Field: keys[0], Reason: fmt.Sprintf("not an integer: %v", f)}
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, &model.ValidationError{Record: id, Field: keys[0], Reason: fmt.Sprintf("out of range: %v", f)}
	}
	return int(f), nil
}

func optionalInt(rec map[string]any, id, field, key string) (int, error) {
	v, ok := lookup(rec, key)
	if !ok {
		return 0, nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, &model.ValidationError{Record: id, Field: field, Reason: fmt.Sprintf("not a non-negative integer: %v", v)}
	}
	return int(f), nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func listLen(v any) int {
	if list, ok := v.([]any); ok {
		return len(list)
	}
	return 0
}

func coordinates(v any) (*model.Coordinates, error) {
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		return nil, errors.New("expected [lng, lat]")
	}
	lng, ok1 := toFloat(list[0])
	lat, ok2 := toFloat(list[1])
	if !ok1 || !ok2 {
		return nil, errors.New("expected numeric [lng, lat]")
	}
	return &model.Coordinates{lng, lat}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTimestamp accepts the common ISO-ish layouts, RFC1123 and unix
// seconds or milliseconds. Zone-less values are read in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}
	if isNumeric(value) {
		if ts, err := parseUnix(value); err == nil {
			return ts, nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}

func isNumeric(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return len(value) > 0
}

func parseUnix(value string) (time.Time, error) {
	if len(value) >= 13 {
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}
