package api

import (
	"net/http/httptest"
	"testing"

	"github.com/vp-back/pkg/config"
)

func testProfileConfig() *config.ProfileConfig {
	return &config.ProfileConfig{
		Symbols:      []string{"BTC/USD"},
		Interval:     "1h",
		WindowLength: 300,
		BinCount:     100,
		VAFraction:   0.7,
		RiskReward:   2.0,
	}
}

func TestParseComputeParams_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/symbols/BTC%2FUSD/profile", nil)

	p, err := parseComputeParams(r, testProfileConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.overridden {
		t.Error("expected no override without query parameters")
	}
	if p.windowLength != 300 {
		t.Errorf("windowLength = %d, want 300", p.windowLength)
	}
	if p.opts.BinCount != 100 || p.opts.VAFraction != 0.7 || p.opts.RiskReward != 2.0 {
		t.Errorf("opts = %+v, want configured defaults", p.opts)
	}
}

func TestParseComputeParams_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?bins=50&va=0.68&rr=3&limit=500", nil)

	p, err := parseComputeParams(r, testProfileConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.overridden {
		t.Error("expected overridden to be set")
	}
	if p.opts.BinCount != 50 {
		t.Errorf("BinCount = %d, want 50", p.opts.BinCount)
	}
	if p.opts.VAFraction != 0.68 {
		t.Errorf("VAFraction = %g, want 0.68", p.opts.VAFraction)
	}
	if p.opts.RiskReward != 3 {
		t.Errorf("RiskReward = %g, want 3", p.opts.RiskReward)
	}
	if p.windowLength != 500 {
		t.Errorf("windowLength = %d, want 500", p.windowLength)
	}
}

func TestParseComputeParams_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"non-numeric bins", "?bins=abc"},
		{"bins too small", "?bins=1"},
		{"va out of range", "?va=1.5"},
		{"va zero", "?va=0"},
		{"negative rr", "?rr=-1"},
		{"limit below minimum", "?limit=10"},
		{"limit above maximum", "?limit=5000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/x"+tc.query, nil)
			if _, err := parseComputeParams(r, testProfileConfig()); err == nil {
				t.Errorf("expected error for %s", tc.query)
			}
		})
	}
}
