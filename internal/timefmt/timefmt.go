// Package timefmt renders elapsed time for dashboard display.
package timefmt

import (
	"fmt"
	"time"

	"siteguard/internal/model"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * 60
)

// Between returns now - t, or an InvalidRangeError when now precedes t.
func Between(t, now time.Time) (time.Duration, error) {
	if now.Before(t) {
		return 0, &model.InvalidRangeError{From: t, To: now}
	}
	return now.Sub(t), nil
}

// Format renders the time elapsed since t in minutes, hours or days.
// A t in the future of now is clamped to zero elapsed time.
func Format(t, now time.Time) string {
	elapsed, err := Between(t, now)
	if err != nil {
		elapsed = 0
	}
	m := int64(elapsed / time.Minute)
	switch {
	case m < minutesPerHour:
		return fmt.Sprintf("%d min ago", m)
	case m < minutesPerDay:
		return plural(m/minutesPerHour, "hour")
	default:
		return plural(m/minutesPerDay, "day")
	}
}

// Short renders the compact form used by alert cards: "Just now", "5m ago",
// "2h ago", "3d ago".
func Short(t, now time.Time) string {
	elapsed, err := Between(t, now)
	if err != nil {
		elapsed = 0
	}
	m := int64(elapsed / time.Minute)
	switch {
	case m < 1:
		return "Just now"
	case m < minutesPerHour:
		return fmt.Sprintf("%dm ago", m)
	case m < minutesPerDay:
		return fmt.Sprintf("%dh ago", m/minutesPerHour)
	default:
		return fmt.Sprintf("%dd ago", m/minutesPerDay)
	}
}

func plural(n int64, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
