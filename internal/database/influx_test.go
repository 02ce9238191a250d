package database

import (
	"testing"
	"time"
)

func TestCandleMeasurement(t *testing.T) {
	tests := []struct {
		interval string
		want     string
	}{
		{"1h", "ohlcv"},
		{"", "ohlcv"},
		{"1m", "ohlcv_1m"},
		{"4h", "ohlcv_4h"},
		{"1d", "ohlcv_1d"},
	}

	for _, tc := range tests {
		if got := candleMeasurement(tc.interval); got != tc.want {
			t.Errorf("candleMeasurement(%q) = %q, want %q", tc.interval, got, tc.want)
		}
	}
}

func TestIntervalLookback(t *testing.T) {
	tests := []struct {
		interval string
		want     time.Duration
	}{
		{"1m", time.Minute},
		{"30m", 30 * time.Minute},
		{"1h", time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"bogus", time.Hour},
	}

	for _, tc := range tests {
		if got := intervalLookback(tc.interval); got != tc.want {
			t.Errorf("intervalLookback(%q) = %v, want %v", tc.interval, got, tc.want)
		}
	}
}
