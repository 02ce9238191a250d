package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vp-back/internal/database"
	"github.com/vp-back/internal/exchange"
	"github.com/vp-back/pkg/models"
)

// batchSource is implemented by exchange clients that support paginated
// range fetches. Sources without it fall back to a single limited fetch.
type batchSource interface {
	GetCandlesBatch(ctx context.Context, symbol, interval string, startTime, endTime int64) ([]models.Candle, error)
}

// Backfiller loads historical candles from an exchange into InfluxDB
type Backfiller struct {
	source exchange.CandleSource
	influx *database.InfluxClient
	mysql  *database.MySQLClient
	logger *logrus.Entry
}

// NewBackfiller creates a new backfiller
func NewBackfiller(
	source exchange.CandleSource,
	influx *database.InfluxClient,
	mysql *database.MySQLClient,
	logger *logrus.Logger,
) *Backfiller {
	return &Backfiller{
		source: source,
		influx: influx,
		mysql:  mysql,
		logger: logger.WithField("component", "backfill"),
	}
}

// Backfill loads the given number of days of candles for one symbol
func (b *Backfiller) Backfill(ctx context.Context, symbol, interval string, days int) error {
	if days <= 0 {
		return fmt.Errorf("days must be > 0, got %d", days)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	// Resume from the last stored bar instead of refetching history
	// that is already in the bucket
	if _, latest, err := b.influx.GetDataTimeRange(ctx, symbol, interval); err == nil && latest.After(start) {
		start = latest.Add(exchange.IntervalDuration(interval))
		if !start.Before(end) {
			b.logger.WithField("symbol", symbol).Info("Backfill already up to date")
			return nil
		}
	}

	b.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"interval": interval,
		"from":     start.Format(time.RFC3339),
		"to":       end.Format(time.RFC3339),
		"source":   b.source.Name(),
	}).Info("Starting backfill")

	candles, err := b.fetch(ctx, symbol, interval, start, end)
	if err != nil {
		return fmt.Errorf("failed to fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return models.ErrNoData
	}

	// Write in chunks to keep request bodies bounded
	const chunkSize = 1000
	for i := 0; i < len(candles); i += chunkSize {
		endIdx := i + chunkSize
		if endIdx > len(candles) {
			endIdx = len(candles)
		}
		if err := b.influx.WriteCandles(ctx, candles[i:endIdx], interval); err != nil {
			return fmt.Errorf("failed to write candles: %w", err)
		}
	}

	b.logger.WithFields(logrus.Fields{
		"symbol":  symbol,
		"candles": len(candles),
	}).Info("Backfill completed")

	return nil
}

// BackfillAll loads history for every symbol in the registry, or the
// provided fallback list when the registry is empty or unavailable.
func (b *Backfiller) BackfillAll(ctx context.Context, interval string, days int, fallback []string) error {
	symbols := fallback

	if b.mysql != nil {
		registered, err := b.mysql.GetSymbols(ctx)
		if err != nil {
			b.logger.WithError(err).Warn("Failed to load symbol registry, using configured symbols")
		} else if len(registered) > 0 {
			symbols = make([]string, 0, len(registered))
			for _, s := range registered {
				symbols = append(symbols, s.Symbol)
			}
		}
	}

	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to backfill")
	}

	var failed int
	for _, symbol := range symbols {
		if err := b.Backfill(ctx, symbol, interval, days); err != nil {
			b.logger.WithError(err).WithField("symbol", symbol).Error("Backfill failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("backfill failed for %d of %d symbols", failed, len(symbols))
	}

	return nil
}

func (b *Backfiller) fetch(ctx context.Context, symbol, interval string, start, end time.Time) ([]models.Candle, error) {
	if bs, ok := b.source.(batchSource); ok {
		return bs.GetCandlesBatch(ctx, symbol, interval, start.UnixMilli(), end.UnixMilli())
	}

	// Limited sources return at most their per-request maximum
	limit := int(end.Sub(start) / exchange.IntervalDuration(interval))
	return b.source.GetCandles(ctx, symbol, interval, limit)
}
