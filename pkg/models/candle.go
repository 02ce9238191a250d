package models

import (
	"time"
)

// Candle represents one OHLCV candlestick
type Candle struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	TradeCount int64     `json:"trade_count,omitempty"`
}

// SortCandles orders candles by ascending timestamp in place
func SortCandles(candles []Candle) {
	// Insertion sort; exchange responses are already mostly ordered
	for i := 1; i < len(candles); i++ {
		for j := i; j > 0 && candles[j].Timestamp.Before(candles[j-1].Timestamp); j-- {
			candles[j], candles[j-1] = candles[j-1], candles[j]
		}
	}
}
