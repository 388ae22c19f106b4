package normalize

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteguard/internal/model"
)

func decodeMap(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestSiteDecodesWireShape(t *testing.T) {
	d := NewDecoder("UTC")
	rec := decodeMap(t, `{
		"id": "SITE_001", "name": "Harbor Tower", "location": "Pier 4",
		"riskLevel": "High", "riskScore": 8.1, "compliance": "78",
		"workers": 42, "aiCameras": 6, "lastCheck": "2026-03-01T10:30:00Z",
		"alertCounts": {"critical": 2, "warning": 3, "info": 1, "total": 6},
		"coordinates": [-122.39, 37.79]
	}`)
	site, err := d.Site(rec)
	require.NoError(t, err)
	assert.Equal(t, "SITE_001", site.ID)
	assert.Equal(t, 8.1, site.RiskScore)
	assert.Equal(t, 78.0, site.Compliance)
	assert.Equal(t, 42, site.Workers)
	assert.Equal(t, 6, site.AICameras)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), site.LastCheck)
	assert.Equal(t, model.AlertCounts{Critical: 2, Warning: 3, Info: 1, Total: 6}, site.AlertCounts)
	require.NotNil(t, site.Coordinates)
	assert.Equal(t, -122.39, site.Coordinates[0])
}

func TestSiteAliasesAndDerivedCounts(t *testing.T) {
	d := NewDecoder("")
	rec := decodeMap(t, `{
		"site_id": "S9", "risk_level": "Low", "risk_score": 3, "compliance": 95,
		"workers": 0, "cameras": 1, "last_check": 1772361000,
		"alerts": {"critical": [{}], "warning": [], "info": [{}, {}]}
	}`)
	site, err := d.Site(rec)
	require.NoError(t, err)
	assert.Equal(t, "S9", site.ID)
	assert.Equal(t, 1, site.AICameras)
	assert.Equal(t, model.AlertCounts{Critical: 1, Info: 2, Total: 3}, site.AlertCounts)
	assert.Equal(t, int64(1772361000), site.LastCheck.Unix())

	rec = decodeMap(t, `{"id":"S1","riskScore":1,"compliance":1,"workers":1,"aiCameras":1,
		"lastCheck":"2026-03-01 10:00:00","alertCounts":{"critical":1,"warning":1}}`)
	site, err = d.Site(rec)
	require.NoError(t, err)
	assert.Equal(t, 2, site.AlertCounts.Total)
}

func TestSiteValidationErrors(t *testing.T) {
	d := NewDecoder("UTC")
	cases := map[string]string{
		"id":          `{"name":"x"}`,
		"riskScore":   `{"id":"a","compliance":1,"workers":1,"aiCameras":1,"lastCheck":"2026-03-01T00:00:00Z"}`,
		"compliance":  `{"id":"a","riskScore":1,"compliance":"high","workers":1,"aiCameras":1,"lastCheck":"2026-03-01T00:00:00Z"}`,
		"workers":     `{"id":"a","riskScore":1,"compliance":1,"workers":1.5,"aiCameras":1,"lastCheck":"2026-03-01T00:00:00Z"}`,
		"lastCheck":   `{"id":"a","riskScore":1,"compliance":1,"workers":1,"aiCameras":1,"lastCheck":"yesterday"}`,
		"alertCounts": `{"id":"a","riskScore":1,"compliance":1,"workers":1,"aiCameras":1,"lastCheck":"2026-03-01T00:00:00Z","alertCounts":{"critical":1,"total":5}}`,
		"coordinates": `{"id":"a","riskScore":1,"compliance":1,"workers":1,"aiCameras":1,"lastCheck":"2026-03-01T00:00:00Z","coordinates":[1]}`,
	}
	for field, body := range cases {
		_, err := d.Site(decodeMap(t, body))
		var ve *model.ValidationError
		require.True(t, errors.As(err, &ve), field)
		assert.Equal(t, field, ve.Field)
	}
}

func TestSiteRejectsOutOfRangeCounts(t *testing.T) {
	d := NewDecoder("UTC")
	cases := map[string]string{
		"workers":              `{"id":"a","riskScore":1,"compliance":1,"workers":1e20,"aiCameras":1,"lastCheck":"2026-03-01T00:00:00Z"}`,
		"aiCameras":            `{"id":"a","riskScore":1,"compliance":1,"workers":1,"aiCameras":-9e18,"lastCheck":"2026-03-01T00:00:00Z"}`,
		"alertCounts.critical": `{"id":"a","riskScore":1,"compliance":1,"workers":1,"aiCameras":1,"lastCheck":"2026-03-01T00:00:00Z","alertCounts":{"critical":3e12}}`,
	}
	for field, body := range cases {
		_, err := d.Site(decodeMap(t, body))
		var ve *model.ValidationError
		require.True(t, errors.As(err, &ve), field)
		assert.Equal(t, field, ve.Field)
	}

	site, err := d.Site(decodeMap(t, `{"id":"a","riskScore":1,"compliance":1,"workers":2147483647,"aiCameras":1,"lastCheck":"2026-03-01T00:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, 2147483647, site.Workers)
}

func TestAlertDecode(t *testing.T) {
	d := NewDecoder("UTC")
	a, err := d.Alert(decodeMap(t, `{"id":"A1","type":"NoHelmetDetected","timestamp":"2026-03-01T11:55:00Z",
		"confidence":0.92,"description":"Worker without helmet","image":"a1.jpg","emailSent":"Sent to supervisor"}`))
	require.NoError(t, err)
	assert.Equal(t, "A1", a.ID)
	assert.Equal(t, 0.92, a.Confidence)
	assert.Equal(t, "a1.jpg", a.Image)
	assert.Equal(t, "Sent to supervisor", a.EmailSent)

	_, err = d.Alert(decodeMap(t, `{"id":"A2","timestamp":"2026-03-01T11:55:00Z"}`))
	assert.Error(t, err)
	_, err = d.Alert(decodeMap(t, `{"id":"A3","type":"CameraOffline"}`))
	assert.Error(t, err)
	_, err = d.Alert(decodeMap(t, `{"id":"A4","type":"CameraOffline","timestamp":"2026-03-01T11:55:00Z","confidence":1.5}`))
	assert.Error(t, err)
}

func TestSiteAlertsDropsMalformed(t *testing.T) {
	d := NewDecoder("UTC")
	sa, diags := d.SiteAlerts(decodeMap(t, `{"id":"SITE_001","name":"Harbor","alerts":{
		"critical":[{"id":"c1","type":"SlipFallDetected","timestamp":"2026-03-01T11:00:00Z","confidence":0.9}, "junk"],
		"warning":[{"id":"w1","timestamp":"2026-03-01T11:00:00Z"}],
		"info":[{"id":"i1","type":"SystemCheck","timestamp":1772362800000}]
	}}`))
	assert.Equal(t, "SITE_001", sa.SiteID)
	assert.Equal(t, "Harbor", sa.SiteName)
	assert.Len(t, sa.Alerts.Critical, 1)
	assert.Empty(t, sa.Alerts.Warning)
	require.Len(t, sa.Alerts.Info, 1)
	assert.Equal(t, int64(1772362800), sa.Alerts.Info[0].Timestamp.Unix())
	require.Len(t, diags, 2)
	assert.Equal(t, "SITE_001/critical/#1", diags[0].Record)
	assert.Equal(t, "SITE_001/warning/w1", diags[1].Record)
}

func TestParseTimestampLayouts(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	ts, err := ParseTimestamp("2026-03-01 10:00:00", loc)
	require.NoError(t, err)
	assert.Equal(t, 17, ts.UTC().Hour())

	ts, err = ParseTimestamp("1772361000000", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1772361000), ts.Unix())

	_, err = ParseTimestamp("", nil)
	assert.Error(t, err)
}
