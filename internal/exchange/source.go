package exchange

import (
	"context"
	"time"

	"github.com/vp-back/pkg/models"
)

// CandleSource supplies ordered OHLCV candle windows for a symbol and
// interval. Implementations may fail (timeout, unknown symbol,
// connectivity); callers treat any failure as "no data".
type CandleSource interface {
	// GetCandles returns up to limit candles ordered by ascending
	// timestamp, the last one being the current (possibly still forming)
	// candle.
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)

	// Name identifies the exchange (kraken, binance)
	Name() string
}

// CandleHandler receives closed candles from a live stream
type CandleHandler func(models.Candle)

// IntervalDuration returns the wall-clock duration of an interval code
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// IntervalMilliseconds returns the duration of an interval in milliseconds
func IntervalMilliseconds(interval string) int64 {
	return IntervalDuration(interval).Milliseconds()
}
