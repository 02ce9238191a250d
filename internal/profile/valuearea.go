package profile

import (
	"github.com/vp-back/pkg/models"
)

// unavailable marks an exhausted expansion side. Real bin volumes are never
// negative, so it always loses the comparison against an in-range bin.
const unavailable = -1.0

// ExpandValueArea grows a contiguous band of bins outward from the point of
// control until the band holds vaFraction of the histogram's total volume,
// returning the indices of the band's upper and lower bins. At every step
// the neighbor with the larger volume is absorbed; on an exact tie the
// upward (higher-price) side wins. When both sides are exhausted the
// expansion stops even if the target was not reached.
//
// A malformed call (empty histogram, out-of-range pocIdx) returns (0, 0)
// rather than panicking; callers treat that as "no profile" and emit WAIT.
func ExpandValueArea(bins []models.PriceBin, pocIdx int, vaFraction float64) (vahIdx, valIdx int) {
	if len(bins) == 0 || pocIdx < 0 || pocIdx >= len(bins) {
		return 0, 0
	}

	var total float64
	for _, b := range bins {
		total += b.Volume
	}
	target := vaFraction * total

	up := pocIdx
	down := pocIdx
	accumulated := bins[pocIdx].Volume

	for accumulated < target {
		candUp := unavailable
		candDown := unavailable
		if up+1 < len(bins) {
			candUp = bins[up+1].Volume
		}
		if down > 0 {
			candDown = bins[down-1].Volume
		}

		if candUp == unavailable && candDown == unavailable {
			break
		}

		if candUp >= candDown {
			up++
			accumulated += bins[up].Volume
		} else {
			down--
			accumulated += bins[down].Volume
		}
	}

	return up, down
}
