package database

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// InfluxClient handles InfluxDB time-series operations
type InfluxClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	logger   *logrus.Entry
	cfg      *config.InfluxConfig
	org      string
	bucket   string
}

// NewInfluxClient creates a new InfluxDB client
func NewInfluxClient(cfg *config.InfluxConfig, logger *logrus.Logger) *InfluxClient {
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetHTTPRequestTimeout(uint(cfg.Timeout.Seconds())).
			SetLogLevel(0), // Silent - no logs
	)

	return &InfluxClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		logger:   logger.WithField("component", "influxdb"),
		cfg:      cfg,
		org:      cfg.Org,
		bucket:   cfg.Bucket,
	}
}

// Close closes the InfluxDB client
func (ic *InfluxClient) Close() {
	ic.client.Close()
}

// Health checks InfluxDB health
func (ic *InfluxClient) Health(ctx context.Context) error {
	health, err := ic.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influxdb health check failed: %s", msg)
	}

	return nil
}

// candleMeasurement maps an interval to its measurement name.
// 1h data lives in the base "ohlcv" measurement, everything else
// gets an interval suffix.
func candleMeasurement(interval string) string {
	if interval == "1h" || interval == "" {
		return "ohlcv"
	}
	return fmt.Sprintf("ohlcv_%s", interval)
}

// Candle operations

// WriteCandle writes a single OHLCV candle
func (ic *InfluxClient) WriteCandle(ctx context.Context, candle *models.Candle, interval string) error {
	point := candlePoint(candle, interval)

	if err := ic.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write candle: %w", err)
	}

	return nil
}

// WriteCandles writes multiple OHLCV candles in a single batch
func (ic *InfluxClient) WriteCandles(ctx context.Context, candles []models.Candle, interval string) error {
	if len(candles) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(candles))
	for i := range candles {
		points = append(points, candlePoint(&candles[i], interval))
	}

	if err := ic.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write candles batch (%d points): %w", len(points), err)
	}

	return nil
}

func candlePoint(candle *models.Candle, interval string) *write.Point {
	return influxdb2.NewPoint(
		candleMeasurement(interval),
		map[string]string{
			"symbol": candle.Symbol,
		},
		map[string]interface{}{
			"open":        candle.Open,
			"high":        candle.High,
			"low":         candle.Low,
			"close":       candle.Close,
			"volume":      candle.Volume,
			"trade_count": candle.TradeCount,
		},
		candle.Timestamp,
	)
}

// GetCandles retrieves OHLCV candles for a symbol within a time range
func (ic *InfluxClient) GetCandles(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Candle, error) {
	measurement := candleMeasurement(interval)

	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: %s, stop: %s)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r._field == "open" or r._field == "high" or r._field == "low" or r._field == "close" or r._field == "volume")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"])
	`, ic.bucket, from.Format(time.RFC3339), to.Format(time.RFC3339), measurement, symbol)

	result, err := ic.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer result.Close()

	candles := make([]models.Candle, 0)
	for result.Next() {
		record := result.Record()

		candle := models.Candle{
			Symbol:    symbol,
			Timestamp: record.Time(),
		}

		if v, ok := record.Values()["open"].(float64); ok {
			candle.Open = v
		}
		if v, ok := record.Values()["high"].(float64); ok {
			candle.High = v
		}
		if v, ok := record.Values()["low"].(float64); ok {
			candle.Low = v
		}
		if v, ok := record.Values()["close"].(float64); ok {
			candle.Close = v
		}
		if v, ok := record.Values()["volume"].(float64); ok {
			candle.Volume = v
		}
		if v, ok := record.Values()["trade_count"].(int64); ok {
			candle.TradeCount = v
		}

		candles = append(candles, candle)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("query error: %w", result.Err())
	}

	return candles, nil
}

// GetRecentCandles retrieves the newest candles for a symbol, up to limit
func (ic *InfluxClient) GetRecentCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	to := time.Now().UTC()
	from := to.Add(-time.Duration(limit+1) * intervalLookback(interval))

	candles, err := ic.GetCandles(ctx, symbol, interval, from, to)
	if err != nil {
		return nil, err
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// GetDataTimeRange retrieves the earliest and latest candle timestamps for a symbol
func (ic *InfluxClient) GetDataTimeRange(ctx context.Context, symbol, interval string) (earliest, latest time.Time, err error) {
	measurement := candleMeasurement(interval)

	earliestQuery := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: -1000d)
		|> filter(fn: (r) => r._measurement == "%s")
		|> filter(fn: (r) => r.symbol == "%s")
		|> filter(fn: (r) => r._field == "close")
		|> first()
	`, ic.bucket, measurement, symbol)

	earliestResult, err := ic.queryAPI.Query(ctx, earliestQuery)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to query earliest: %w", err)
	}
	defer earliestResult.Close()

	if earliestResult.Next() {
		earliest = earliestResult.Record().Time()
	}

	latestQuery := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: -1000d)
		|> filter(fn: (r) => r._measurement == "%s")
		|> filter(fn: (r) => r.symbol == "%s")
		|> filter(fn: (r) => r._field == "close")
		|> last()
	`, ic.bucket, measurement, symbol)

	latestResult, err := ic.queryAPI.Query(ctx, latestQuery)
	if err != nil {
		return earliest, time.Time{}, fmt.Errorf("failed to query latest: %w", err)
	}
	defer latestResult.Close()

	if latestResult.Next() {
		latest = latestResult.Record().Time()
	}

	return earliest, latest, nil
}

// Profile operations

// WriteProfile writes computed volume profile levels
func (ic *InfluxClient) WriteProfile(ctx context.Context, vp *models.VolumeProfile) error {
	point := influxdb2.NewPoint(
		"volume_profile",
		map[string]string{
			"symbol":   vp.Symbol,
			"interval": vp.Interval,
		},
		map[string]interface{}{
			"poc":          vp.POC,
			"vah":          vp.VAH,
			"val":          vp.VAL,
			"total_volume": vp.TotalVolume,
			"bin_count":    len(vp.Bins),
		},
		vp.Timestamp,
	)

	if err := ic.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write volume profile: %w", err)
	}

	return nil
}

// GetLevelHistory retrieves historical POC/VAH/VAL levels for a symbol
func (ic *InfluxClient) GetLevelHistory(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.VolumeProfile, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: %s, stop: %s)
			|> filter(fn: (r) => r._measurement == "volume_profile")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r.interval == "%s")
			|> filter(fn: (r) => r._field == "poc" or r._field == "vah" or r._field == "val" or r._field == "total_volume")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"])
	`, ic.bucket, from.Format(time.RFC3339), to.Format(time.RFC3339), symbol, interval)

	result, err := ic.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query level history: %w", err)
	}
	defer result.Close()

	profiles := make([]models.VolumeProfile, 0)
	for result.Next() {
		record := result.Record()

		vp := models.VolumeProfile{
			Symbol:    symbol,
			Interval:  interval,
			Timestamp: record.Time(),
		}

		if v, ok := record.Values()["poc"].(float64); ok {
			vp.POC = v
		}
		if v, ok := record.Values()["vah"].(float64); ok {
			vp.VAH = v
		}
		if v, ok := record.Values()["val"].(float64); ok {
			vp.VAL = v
		}
		if v, ok := record.Values()["total_volume"].(float64); ok {
			vp.TotalVolume = v
		}

		profiles = append(profiles, vp)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("query error: %w", result.Err())
	}

	return profiles, nil
}

// intervalLookback returns the duration of a single candle for range math
func intervalLookback(interval string) time.Duration {
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
