package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertLabelKnownAndFallback(t *testing.T) {
	assert.Equal(t, "No Helmet Detected", AlertLabel("NoHelmetDetected"))
	assert.Equal(t, "Camera Offline", AlertLabel("CameraOffline"))
	assert.Equal(t, "Gas Leak Detected", AlertLabel("GasLeakDetected"))
	assert.Equal(t, "", AlertLabel(""))
}

func TestAlertIconFallback(t *testing.T) {
	assert.Equal(t, "📹", AlertIcon("CameraOffline"))
	assert.Equal(t, "⚠️", AlertIcon("SomethingNew"))
	assert.Equal(t, AlertUnknown, ParseAlertType("SomethingNew"))
	assert.Equal(t, "Unknown", AlertUnknown.String())
	assert.Equal(t, "SlipFallDetected", AlertSlipFall.String())
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("")
	require.NoError(t, err)
	assert.Equal(t, SeverityAll, sev)

	sev, err = ParseSeverity("warning")
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, sev)

	_, err = ParseSeverity("urgent")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "severity", ve.Field)
}

func TestBucketsCounts(t *testing.T) {
	b := Buckets{
		Critical: []RawAlert{{ID: "1"}},
		Warning:  []RawAlert{{ID: "2"}, {ID: "3"}},
	}
	assert.Equal(t, AlertCounts{Critical: 1, Warning: 2, Info: 0, Total: 3}, b.Counts())
	assert.Len(t, b.Bucket(SeverityWarning), 2)
	assert.Nil(t, b.Bucket(SeverityAll))
}
