package models

import (
	"errors"
)

// Sentinel errors for the profile computation pipeline. Callers distinguish
// "no data" from "bad parameters" instead of getting a uniformly empty
// result.
var (
	// ErrEmptyWindow indicates the candle window had no candles.
	ErrEmptyWindow = errors.New("empty candle window")

	// ErrInvalidParameter indicates an out-of-range configuration value
	// (bin count, value-area fraction, risk/reward).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoData indicates the data supplier returned nothing for the
	// requested symbol/interval.
	ErrNoData = errors.New("no data available")
)
