package profile

import (
	"math"
	"testing"
	"time"

	"github.com/vp-back/pkg/models"
)

func makeCandle(low, high, close, volume float64, minute int) models.Candle {
	return models.Candle{
		Symbol:    "BTC/USD",
		Timestamp: time.Date(2024, 3, 1, 0, minute, 0, 0, time.UTC),
		Open:      close,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (diff=%.6f)", label, got, want, math.Abs(got-want))
	}
}

func TestBuild_EmptyWindow(t *testing.T) {
	_, err := Build(nil, 100)
	if err != models.ErrEmptyWindow {
		t.Fatalf("expected ErrEmptyWindow, got %v", err)
	}
}

func TestBuild_InvalidBinCount(t *testing.T) {
	window := []models.Candle{makeCandle(99, 101, 100, 10, 0)}
	for _, binCount := range []int{-1, 0, 1} {
		_, err := Build(window, binCount)
		if err == nil {
			t.Errorf("binCount=%d: expected error, got nil", binCount)
		}
	}
}

func TestBuild_DegenerateRange(t *testing.T) {
	// All candles trade at exactly one price: the histogram collapses to
	// a single bin and every level equals that price.
	window := []models.Candle{
		makeCandle(500, 500, 500, 10, 0),
		makeCandle(500, 500, 500, 20, 1),
		makeCandle(500, 500, 500, 30, 2),
	}

	vp, err := Build(window, 100)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(vp.Bins) != 1 {
		t.Fatalf("expected 1 bin, got %d", len(vp.Bins))
	}
	assertClose(t, "POC", vp.POC, 500, 1e-9)
	assertClose(t, "VAH", vp.VAH, 500, 1e-9)
	assertClose(t, "VAL", vp.VAL, 500, 1e-9)
	assertClose(t, "bin volume", vp.Bins[0].Volume, 60, 1e-9)
}

func TestBuild_BinLayout(t *testing.T) {
	// Range [100, 200] with 11 edges -> 10 bins of width 10, keyed by
	// lower edge.
	window := []models.Candle{
		makeCandle(100, 200, 150, 5, 0),
	}

	vp, err := Build(window, 11)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(vp.Bins) != 10 {
		t.Fatalf("expected 10 bins, got %d", len(vp.Bins))
	}
	assertClose(t, "first bin price", vp.Bins[0].Price, 100, 1e-9)
	assertClose(t, "last bin price", vp.Bins[9].Price, 190, 1e-9)
	assertClose(t, "bin width", vp.BinWidth(), 10, 1e-9)

	// Close=150 lands in the [150, 160) bin
	assertClose(t, "close bin volume", vp.Bins[5].Volume, 5, 1e-9)
}

func TestBuild_CloseAtRangeTop(t *testing.T) {
	// A close exactly at the window high must clamp into the last bin
	// instead of indexing out of range.
	window := []models.Candle{
		makeCandle(100, 200, 200, 7, 0),
		makeCandle(100, 180, 120, 3, 1),
	}

	vp, err := Build(window, 11)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	assertClose(t, "top bin volume", vp.Bins[len(vp.Bins)-1].Volume, 7, 1e-9)
}

func TestBuild_POCMaxVolumeBin(t *testing.T) {
	// Three closes at 150 dominate the histogram.
	window := []models.Candle{
		makeCandle(100, 200, 150, 10, 0),
		makeCandle(100, 200, 150, 10, 1),
		makeCandle(100, 200, 150, 10, 2),
		makeCandle(100, 200, 110, 5, 3),
		makeCandle(100, 200, 190, 5, 4),
	}

	vp, err := Build(window, 11)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	assertClose(t, "POC", vp.POC, 150, 1e-9)
}

func TestBuild_POCTieBreaksLow(t *testing.T) {
	// Equal volume at two prices: the lower-price bin wins the tie.
	window := []models.Candle{
		makeCandle(100, 200, 120, 10, 0),
		makeCandle(100, 200, 180, 10, 1),
	}

	vp, err := Build(window, 11)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	assertClose(t, "POC", vp.POC, 120, 1e-9)
}

func TestBuild_VolumeConservation(t *testing.T) {
	window := []models.Candle{
		makeCandle(100, 120, 105, 13.5, 0),
		makeCandle(95, 118, 110, 7.25, 1),
		makeCandle(101, 140, 139.5, 42, 2),
		makeCandle(90, 125, 90.1, 0.75, 3),
	}

	vp, err := Build(window, 100)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var binSum, inputSum float64
	for _, b := range vp.Bins {
		binSum += b.Volume
	}
	for _, c := range window {
		inputSum += c.Volume
	}

	assertClose(t, "volume conservation", binSum, inputSum, 1e-9)
	assertClose(t, "total volume", vp.TotalVolume, inputSum, 1e-9)
}

func TestBuild_Idempotent(t *testing.T) {
	window := []models.Candle{
		makeCandle(100, 120, 105, 13.5, 0),
		makeCandle(95, 118, 110, 7.25, 1),
		makeCandle(101, 140, 139.5, 42, 2),
	}

	first, err := Build(window, 100)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := Build(window, 100)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(first.Bins) != len(second.Bins) {
		t.Fatalf("bin counts differ: %d vs %d", len(first.Bins), len(second.Bins))
	}
	for i := range first.Bins {
		if first.Bins[i] != second.Bins[i] {
			t.Errorf("bin %d differs: %+v vs %+v", i, first.Bins[i], second.Bins[i])
		}
	}
	if first.POC != second.POC {
		t.Errorf("POC differs: %v vs %v", first.POC, second.POC)
	}
}

func TestCompute_UniformWindowCollapses(t *testing.T) {
	// Every candle identical: poc == vah == val == that price.
	window := make([]models.Candle, 20)
	for i := range window {
		window[i] = makeCandle(1000, 1000, 1000, 5, i)
	}

	vp, sig, err := Compute(window, DefaultOptions())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	assertClose(t, "POC", vp.POC, 1000, 1e-9)
	assertClose(t, "VAH", vp.VAH, 1000, 1e-9)
	assertClose(t, "VAL", vp.VAL, 1000, 1e-9)
	if sig.Kind != models.SignalWait {
		t.Errorf("expected WAIT for flat window, got %s", sig.Kind)
	}
}

func TestCompute_LevelOrderingInvariant(t *testing.T) {
	window := []models.Candle{
		makeCandle(100, 130, 115, 8, 0),
		makeCandle(105, 125, 112, 13, 1),
		makeCandle(110, 150, 149, 21, 2),
		makeCandle(95, 120, 96, 3, 3),
		makeCandle(100, 135, 118, 17, 4),
	}

	for _, va := range []float64{0.1, 0.3, 0.5, 0.7, 0.9, 0.99} {
		opts := DefaultOptions()
		opts.VAFraction = va

		vp, _, err := Compute(window, opts)
		if err != nil {
			t.Fatalf("va=%g: Compute failed: %v", va, err)
		}
		if !(vp.VAL <= vp.POC && vp.POC <= vp.VAH) {
			t.Errorf("va=%g: ordering violated: val=%g poc=%g vah=%g", va, vp.VAL, vp.POC, vp.VAH)
		}
	}
}

func TestCompute_ValueAreaMonotonic(t *testing.T) {
	window := []models.Candle{
		makeCandle(100, 130, 115, 8, 0),
		makeCandle(105, 125, 112, 13, 1),
		makeCandle(110, 150, 149, 21, 2),
		makeCandle(95, 120, 96, 3, 3),
		makeCandle(100, 135, 118, 17, 4),
	}

	prevWidth := -1.0
	for _, va := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		opts := DefaultOptions()
		opts.VAFraction = va

		vp, _, err := Compute(window, opts)
		if err != nil {
			t.Fatalf("va=%g: Compute failed: %v", va, err)
		}

		width := vp.VAH - vp.VAL
		if width < prevWidth {
			t.Errorf("va=%g: value area shrank: %g < %g", va, width, prevWidth)
		}
		prevWidth = width
	}
}

func TestCompute_RejectsBadOptions(t *testing.T) {
	window := []models.Candle{makeCandle(99, 101, 100, 10, 0)}

	cases := []struct {
		name string
		opts Options
	}{
		{"bin count too small", Options{BinCount: 1, VAFraction: 0.7, RiskReward: 2}},
		{"va fraction zero", Options{BinCount: 100, VAFraction: 0, RiskReward: 2}},
		{"va fraction one", Options{BinCount: 100, VAFraction: 1, RiskReward: 2}},
		{"risk reward zero", Options{BinCount: 100, VAFraction: 0.7, RiskReward: 0}},
		{"risk reward negative", Options{BinCount: 100, VAFraction: 0.7, RiskReward: -2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Compute(window, tc.opts)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
