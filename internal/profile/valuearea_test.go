package profile

import (
	"testing"

	"github.com/vp-back/pkg/models"
)

func binsOf(volumes ...float64) []models.PriceBin {
	bins := make([]models.PriceBin, len(volumes))
	for i, v := range volumes {
		bins[i] = models.PriceBin{Price: 100 + float64(i)*10, Volume: v}
	}
	return bins
}

func TestExpandValueArea_MalformedInput(t *testing.T) {
	cases := []struct {
		name   string
		bins   []models.PriceBin
		pocIdx int
	}{
		{"empty histogram", nil, 0},
		{"poc index negative", binsOf(1, 2, 3), -1},
		{"poc index out of range", binsOf(1, 2, 3), 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vah, val := ExpandValueArea(tc.bins, tc.pocIdx, 0.7)
			if vah != 0 || val != 0 {
				t.Errorf("expected (0, 0), got (%d, %d)", vah, val)
			}
		})
	}
}

func TestExpandValueArea_SingleDominantBin(t *testing.T) {
	// 90% of volume sits in the POC bin, so a 70% target needs no
	// expansion at all.
	bins := binsOf(1, 1, 90, 1, 1)

	vah, val := ExpandValueArea(bins, 2, 0.7)
	if vah != 2 || val != 2 {
		t.Errorf("expected (2, 2), got (%d, %d)", vah, val)
	}
}

func TestExpandValueArea_GreedyPicksLargerSide(t *testing.T) {
	// POC at index 2. The first step compares 30 (up) vs 5 (down) and
	// must absorb upward, which already satisfies the target.
	bins := binsOf(1, 5, 40, 30, 20)

	// total=96, target=0.7*96=67.2: 40 -> +30=70 >= target
	vah, val := ExpandValueArea(bins, 2, 0.7)
	if vah != 3 || val != 2 {
		t.Errorf("expected (3, 2), got (%d, %d)", vah, val)
	}
}

func TestExpandValueArea_TiePrefersUpward(t *testing.T) {
	// Neighbors of the POC carry identical volume; the higher-price side
	// must win the tie.
	bins := binsOf(0, 10, 50, 10, 0)

	// total=70, target=0.8*70=56: 50 -> tie(10, 10) -> up -> 60 >= target
	vah, val := ExpandValueArea(bins, 2, 0.8)
	if vah != 3 {
		t.Errorf("tie should expand upward: expected vah=3, got %d", vah)
	}
	if val != 2 {
		t.Errorf("tie should leave the down side: expected val=2, got %d", val)
	}
}

func TestExpandValueArea_POCAtEdge(t *testing.T) {
	// POC at index 0: only the upward side is available.
	bins := binsOf(50, 20, 10, 5, 5)
	vah, val := ExpandValueArea(bins, 0, 0.9)
	if val != 0 {
		t.Errorf("expected val=0, got %d", val)
	}
	if vah <= 0 || vah >= len(bins) {
		t.Errorf("vah out of bounds: %d", vah)
	}

	// POC at the last index: only downward available.
	bins = binsOf(5, 5, 10, 20, 50)
	vah, val = ExpandValueArea(bins, 4, 0.9)
	if vah != 4 {
		t.Errorf("expected vah=4, got %d", vah)
	}
	if val < 0 || val >= len(bins) {
		t.Errorf("val out of bounds: %d", val)
	}
}

func TestExpandValueArea_UnreachableTarget(t *testing.T) {
	// The helper itself does not clamp the fraction (Options validation
	// does); a target above the total volume exercises the terminal
	// condition. The expansion must stop at the histogram bounds instead
	// of looping or indexing out of range.
	bins := binsOf(0, 0, 10, 0, 0)

	vah, val := ExpandValueArea(bins, 2, 1.5)
	if vah != len(bins)-1 || val != 0 {
		t.Errorf("expected full-range band (4, 0), got (%d, %d)", vah, val)
	}
}

func TestExpandValueArea_TerminatesWithinBinCount(t *testing.T) {
	// Each loop iteration consumes one previously unvisited bin, so the
	// expansion touches at most len(bins) bins for any target.
	volumes := make([]float64, 200)
	for i := range volumes {
		volumes[i] = float64(i % 7)
	}
	bins := binsOf(volumes...)

	vah, val := ExpandValueArea(bins, pocIndex(bins), 0.95)
	if val < 0 || vah >= len(bins) || val > vah {
		t.Errorf("band out of bounds: (%d, %d)", vah, val)
	}
}
