package profile

import (
	"fmt"
	"time"

	"github.com/vp-back/pkg/models"
)

// Options holds the tunable parameters of the profile computation
type Options struct {
	BinCount   int
	VAFraction float64
	RiskReward float64
}

// DefaultOptions returns the standard computation parameters
func DefaultOptions() Options {
	return Options{
		BinCount:   100,
		VAFraction: 0.7,
		RiskReward: 2.0,
	}
}

// Validate rejects out-of-range parameters before any computation runs
func (o Options) Validate() error {
	if o.BinCount < 2 {
		return fmt.Errorf("%w: bin count must be >= 2, got %d", models.ErrInvalidParameter, o.BinCount)
	}
	if o.VAFraction <= 0 || o.VAFraction >= 1 {
		return fmt.Errorf("%w: value area fraction must be in (0, 1), got %g", models.ErrInvalidParameter, o.VAFraction)
	}
	if o.RiskReward <= 0 {
		return fmt.Errorf("%w: risk/reward must be > 0, got %g", models.ErrInvalidParameter, o.RiskReward)
	}
	return nil
}

// Build constructs the volume histogram for a candle window and locates the
// point of control. Each candle's volume is attributed entirely to the bin
// containing its close price; volume is not spread across the candle's
// high-low range. binCount is the number of bin edges, so the histogram has
// binCount-1 rows, each keyed by its lower price edge.
//
// The value area (VAH/VAL) is left for ExpandValueArea; Compute runs the
// full pipeline.
func Build(window []models.Candle, binCount int) (*models.VolumeProfile, error) {
	if len(window) == 0 {
		return nil, models.ErrEmptyWindow
	}
	if binCount < 2 {
		return nil, fmt.Errorf("%w: bin count must be >= 2, got %d", models.ErrInvalidParameter, binCount)
	}

	priceMin := window[0].Low
	priceMax := window[0].High
	var totalVolume float64
	for _, c := range window {
		if c.Low < priceMin {
			priceMin = c.Low
		}
		if c.High > priceMax {
			priceMax = c.High
		}
		totalVolume += c.Volume
	}

	vp := &models.VolumeProfile{
		TotalVolume: totalVolume,
		WindowStart: window[0].Timestamp,
		WindowEnd:   window[len(window)-1].Timestamp,
		Timestamp:   time.Now().UTC(),
	}

	// Zero price range: the whole window trades at one price, so the
	// histogram collapses to a single bin and all levels coincide.
	if priceMax == priceMin {
		vp.Bins = []models.PriceBin{{Price: priceMin, Volume: totalVolume}}
		vp.POC = priceMin
		vp.VAH = priceMin
		vp.VAL = priceMin
		return vp, nil
	}

	width := (priceMax - priceMin) / float64(binCount-1)
	bins := make([]models.PriceBin, binCount-1)
	for i := range bins {
		bins[i].Price = priceMin + float64(i)*width
	}

	for _, c := range window {
		idx := int((c.Close - priceMin) / width)
		if idx < 0 {
			idx = 0
		}
		if idx > len(bins)-1 {
			idx = len(bins) - 1
		}
		bins[idx].Volume += c.Volume
	}

	vp.Bins = bins
	vp.POC = bins[pocIndex(bins)].Price
	return vp, nil
}

// pocIndex returns the index of the point-of-control bin, lowest price
// winning ties.
func pocIndex(bins []models.PriceBin) int {
	idx := 0
	for i := 1; i < len(bins); i++ {
		if bins[i].Volume > bins[idx].Volume {
			idx = i
		}
	}
	return idx
}

// Compute runs the full pipeline for one candle window: histogram and POC,
// value area expansion, and signal evaluation. Options are validated
// eagerly.
func Compute(window []models.Candle, opts Options) (*models.VolumeProfile, *models.Signal, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	vp, err := Build(window, opts.BinCount)
	if err != nil {
		return nil, nil, err
	}

	vahIdx, valIdx := ExpandValueArea(vp.Bins, pocIndex(vp.Bins), opts.VAFraction)
	vp.VAH = vp.Bins[vahIdx].Price
	vp.VAL = vp.Bins[valIdx].Price

	sig, err := EvaluateSignal(window, vp, opts.RiskReward)
	if err != nil {
		return nil, nil, err
	}

	return vp, sig, nil
}
