package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfToday_LocalMidnight(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2026, 9, 1, 1, 30, 0, 0, zone)

	got := startOfToday(now)

	want := time.Date(2026, 9, 1, 0, 0, 0, 0, zone).Unix()
	assert.Equal(t, want, got)

	// 01:30 local is still the previous day in UTC; the day boundary must
	// come from the local calendar, not from truncating the epoch.
	assert.NotEqual(t, now.Truncate(24*time.Hour).Unix(), got)
}

func TestStartOfToday_IdempotentAtMidnight(t *testing.T) {
	zone := time.FixedZone("UTC-3", -3*3600)
	midnight := time.Date(2026, 9, 1, 0, 0, 0, 0, zone)

	assert.Equal(t, midnight.Unix(), startOfToday(midnight))
	assert.Equal(t, midnight.Unix(), startOfToday(midnight.Add(23*time.Hour+59*time.Minute)))
}
