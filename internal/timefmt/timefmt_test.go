package timefmt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteguard/internal/model"
)

func TestFormat(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "0 min ago"},
		{59 * time.Second, "0 min ago"},
		{5 * time.Minute, "5 min ago"},
		{59 * time.Minute, "59 min ago"},
		{60 * time.Minute, "1 hour ago"},
		{90 * time.Minute, "1 hour ago"},
		{125 * time.Minute, "2 hours ago"},
		{1439 * time.Minute, "23 hours ago"},
		{1440 * time.Minute, "1 day ago"},
		{1500 * time.Minute, "1 day ago"},
		{3 * 24 * time.Hour, "3 days ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Format(now.Add(-tc.ago), now), "ago=%s", tc.ago)
	}
}

func TestFormatClampsFutureTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "0 min ago", Format(now.Add(10*time.Minute), now))
	assert.Equal(t, "Just now", Short(now.Add(10*time.Minute), now))
}

func TestBetweenRejectsInvertedRange(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := Between(now.Add(time.Second), now)
	var re *model.InvalidRangeError
	require.True(t, errors.As(err, &re))

	d, err := Between(now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)
}

func TestShort(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Just now", Short(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", Short(now.Add(-5*time.Minute), now))
	assert.Equal(t, "2h ago", Short(now.Add(-125*time.Minute), now))
	assert.Equal(t, "1d ago", Short(now.Add(-1500*time.Minute), now))
}
