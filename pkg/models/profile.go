package models

import (
	"time"
)

// PriceBin is a single row of the volume histogram. Price is the lower
// edge of the bin; bins are ordered by ascending price.
type PriceBin struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// VolumeProfile represents the price-by-volume distribution of a candle
// window plus its derived reference levels.
type VolumeProfile struct {
	Symbol      string     `json:"symbol"`
	Interval    string     `json:"interval"`
	Bins        []PriceBin `json:"bins"`
	POC         float64    `json:"poc"`
	VAH         float64    `json:"vah"`
	VAL         float64    `json:"val"`
	TotalVolume float64    `json:"total_volume"`
	WindowStart time.Time  `json:"window_start"`
	WindowEnd   time.Time  `json:"window_end"`
	Timestamp   time.Time  `json:"timestamp"`
}

// BinWidth returns the constant width of the histogram bins.
func (vp *VolumeProfile) BinWidth() float64 {
	if len(vp.Bins) < 2 {
		return 0
	}
	return vp.Bins[1].Price - vp.Bins[0].Price
}

// InValueArea reports whether a price falls inside [VAL, VAH].
func (vp *VolumeProfile) InValueArea(price float64) bool {
	return price >= vp.VAL && price <= vp.VAH
}
