package models

import (
	"testing"
	"time"
)

func TestSortCandles(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []Candle{
		{Timestamp: base.Add(2 * time.Hour), Close: 3},
		{Timestamp: base, Close: 1},
		{Timestamp: base.Add(time.Hour), Close: 2},
	}

	SortCandles(candles)

	for i, want := range []float64{1, 2, 3} {
		if candles[i].Close != want {
			t.Errorf("candles[%d].Close = %g, want %g", i, candles[i].Close, want)
		}
	}
}

func TestVolumeProfile_BinWidth(t *testing.T) {
	vp := &VolumeProfile{Bins: []PriceBin{{Price: 100}, {Price: 110}, {Price: 120}}}
	if got := vp.BinWidth(); got != 10 {
		t.Errorf("BinWidth() = %g, want 10", got)
	}

	single := &VolumeProfile{Bins: []PriceBin{{Price: 100}}}
	if got := single.BinWidth(); got != 0 {
		t.Errorf("BinWidth() with one bin = %g, want 0", got)
	}
}

func TestVolumeProfile_InValueArea(t *testing.T) {
	vp := &VolumeProfile{VAL: 95, VAH: 105}

	cases := []struct {
		price float64
		want  bool
	}{
		{100, true},
		{95, true},
		{105, true},
		{94.99, false},
		{105.01, false},
	}

	for _, tc := range cases {
		if got := vp.InValueArea(tc.price); got != tc.want {
			t.Errorf("InValueArea(%g) = %v, want %v", tc.price, got, tc.want)
		}
	}
}

func TestSignal_Actionable(t *testing.T) {
	cases := []struct {
		kind SignalKind
		want bool
	}{
		{SignalLong, true},
		{SignalShort, true},
		{SignalWait, false},
	}

	for _, tc := range cases {
		s := &Signal{Kind: tc.kind}
		if got := s.Actionable(); got != tc.want {
			t.Errorf("Actionable() for %s = %v, want %v", tc.kind, got, tc.want)
		}
	}
}
