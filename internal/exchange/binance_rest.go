package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// BinanceRESTClient handles REST API calls to Binance
type BinanceRESTClient struct {
	client    *http.Client
	baseURL   string
	logger    *logrus.Entry
	rateLimit time.Duration
	lastCall  time.Time
}

// NewBinanceRESTClient creates a new Binance REST API client
func NewBinanceRESTClient(cfg *config.ExchangeConfig, logger *logrus.Logger) *BinanceRESTClient {
	return &BinanceRESTClient{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:   cfg.BinanceAPIURL,
		logger:    logger.WithField("component", "binance-rest"),
		rateLimit: cfg.RateLimit,
	}
}

// Name identifies the exchange
func (b *BinanceRESTClient) Name() string {
	return "binance"
}

// GetCandles fetches the newest limit klines for a symbol
func (b *BinanceRESTClient) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	return b.getKlines(ctx, symbol, interval, 0, 0, limit)
}

// GetCandlesRange fetches klines within [startTime, endTime] (unix ms)
func (b *BinanceRESTClient) GetCandlesRange(ctx context.Context, symbol, interval string, startTime, endTime int64) ([]models.Candle, error) {
	return b.getKlines(ctx, symbol, interval, startTime, endTime, 1000)
}

func (b *BinanceRESTClient) getKlines(ctx context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]models.Candle, error) {
	b.enforceRateLimit()

	endpoint := fmt.Sprintf("%s/api/v3/klines", b.baseURL)
	params := url.Values{}
	params.Add("symbol", normalizeBinanceSymbol(symbol))
	params.Add("interval", interval)

	if startTime > 0 {
		params.Add("startTime", strconv.FormatInt(startTime, 10))
	}
	if endTime > 0 {
		params.Add("endTime", strconv.FormatInt(endTime, 10))
	}
	if limit > 0 && limit <= 1000 {
		params.Add("limit", strconv.Itoa(limit))
	} else if limit > 1000 {
		params.Add("limit", "1000")
	}

	fullURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	b.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"interval": interval,
		"limit":    limit,
	}).Debug("Fetching klines")

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var rawKlines [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&rawKlines); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	candles := make([]models.Candle, 0, len(rawKlines))
	for _, raw := range rawKlines {
		if len(raw) < 6 {
			continue
		}

		openTime, ok := raw[0].(float64)
		if !ok {
			continue
		}

		candle := models.Candle{
			Symbol:    symbol,
			Timestamp: time.UnixMilli(int64(openTime)).UTC(),
			Open:      parseFloatField(raw[1]),
			High:      parseFloatField(raw[2]),
			Low:       parseFloatField(raw[3]),
			Close:     parseFloatField(raw[4]),
			Volume:    parseFloatField(raw[5]),
		}
		if len(raw) > 8 {
			if trades, ok := raw[8].(float64); ok {
				candle.TradeCount = int64(trades)
			}
		}
		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, models.ErrNoData
	}

	b.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"count":  len(candles),
	}).Debug("Fetched klines successfully")

	return candles, nil
}

// GetCandlesBatch fetches klines in batches for large date ranges
func (b *BinanceRESTClient) GetCandlesBatch(ctx context.Context, symbol, interval string, startTime, endTime int64) ([]models.Candle, error) {
	var allCandles []models.Candle

	intervalMs := IntervalMilliseconds(interval)
	batchSize := int64(1000) // Max klines per request
	batchDuration := intervalMs * batchSize

	currentStart := startTime
	for currentStart < endTime {
		currentEnd := currentStart + batchDuration
		if currentEnd > endTime {
			currentEnd = endTime
		}

		candles, err := b.GetCandlesRange(ctx, symbol, interval, currentStart, currentEnd)
		if err != nil && err != models.ErrNoData {
			return nil, fmt.Errorf("failed to fetch batch: %w", err)
		}

		allCandles = append(allCandles, candles...)

		if len(candles) > 0 {
			last := candles[len(candles)-1]
			currentStart = last.Timestamp.UnixMilli() + intervalMs
		} else {
			currentStart = currentEnd
		}

		progress := float64(currentStart-startTime) / float64(endTime-startTime) * 100
		b.logger.WithFields(logrus.Fields{
			"symbol":   symbol,
			"progress": fmt.Sprintf("%.1f%%", progress),
			"fetched":  len(allCandles),
		}).Info("Loading historical data")
	}

	return allCandles, nil
}

// normalizeBinanceSymbol maps a BTC/USD style symbol to Binance's format.
// Binance has no plain USD markets, so USD maps to USDT.
func normalizeBinanceSymbol(symbol string) string {
	s := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	if strings.HasSuffix(s, "USD") && !strings.HasSuffix(s, "USDT") {
		s += "T"
	}
	return s
}

// enforceRateLimit ensures requests don't exceed API rate limits
func (b *BinanceRESTClient) enforceRateLimit() {
	elapsed := time.Since(b.lastCall)
	if elapsed < b.rateLimit {
		time.Sleep(b.rateLimit - elapsed)
	}
	b.lastCall = time.Now()
}
