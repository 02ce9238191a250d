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

// KrakenRESTClient fetches OHLC data from the Kraken public API. Kraken is
// the default supplier because its public endpoints do not block cloud
// server IPs.
type KrakenRESTClient struct {
	client    *http.Client
	baseURL   string
	logger    *logrus.Entry
	rateLimit time.Duration
	lastCall  time.Time
}

// NewKrakenRESTClient creates a new Kraken REST API client
func NewKrakenRESTClient(cfg *config.ExchangeConfig, logger *logrus.Logger) *KrakenRESTClient {
	return &KrakenRESTClient{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:   cfg.KrakenAPIURL,
		logger:    logger.WithField("component", "kraken-rest"),
		rateLimit: cfg.RateLimit,
	}
}

// Name identifies the exchange
func (k *KrakenRESTClient) Name() string {
	return "kraken"
}

// krakenOHLCResponse is the envelope of the public OHLC endpoint. The
// result object maps the resolved pair name to rows of
// [time, open, high, low, close, vwap, volume, count].
type krakenOHLCResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// GetCandles fetches up to limit OHLC candles. Kraken returns up to 720
// rows per request with no limit parameter, so the response is trimmed
// client-side to the newest limit candles.
func (k *KrakenRESTClient) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	k.enforceRateLimit()

	endpoint := fmt.Sprintf("%s/0/public/OHLC", k.baseURL)
	params := url.Values{}
	params.Add("pair", normalizeKrakenPair(symbol))
	params.Add("interval", strconv.Itoa(krakenIntervalMinutes(interval)))

	fullURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	k.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"interval": interval,
		"limit":    limit,
	}).Debug("Fetching OHLC data")

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var envelope krakenOHLCResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(envelope.Error) > 0 {
		return nil, fmt.Errorf("kraken API error: %s", strings.Join(envelope.Error, ", "))
	}

	candles, err := parseKrakenResult(symbol, envelope.Result)
	if err != nil {
		return nil, err
	}

	if len(candles) == 0 {
		return nil, models.ErrNoData
	}

	models.SortCandles(candles)
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	k.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"count":  len(candles),
	}).Debug("Fetched OHLC data successfully")

	return candles, nil
}

// parseKrakenResult extracts the candle rows from the result object. Kraken
// keys the rows by its own resolved pair name (e.g. XXBTZUSD for BTC/USD),
// so the one non-"last" entry is taken regardless of its key.
func parseKrakenResult(symbol string, result map[string]json.RawMessage) ([]models.Candle, error) {
	for key, raw := range result {
		if key == "last" {
			continue
		}

		var rows [][]interface{}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode OHLC rows: %w", err)
		}

		candles := make([]models.Candle, 0, len(rows))
		for _, row := range rows {
			if len(row) < 8 {
				continue
			}

			ts, ok := row[0].(float64)
			if !ok {
				continue
			}

			candle := models.Candle{
				Symbol:    symbol,
				Timestamp: time.Unix(int64(ts), 0).UTC(),
				Open:      parseFloatField(row[1]),
				High:      parseFloatField(row[2]),
				Low:       parseFloatField(row[3]),
				Close:     parseFloatField(row[4]),
				Volume:    parseFloatField(row[6]),
			}
			if count, ok := row[7].(float64); ok {
				candle.TradeCount = int64(count)
			}
			candles = append(candles, candle)
		}
		return candles, nil
	}

	return nil, nil
}

// parseFloatField handles Kraken's string-encoded numeric fields
func parseFloatField(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case float64:
		return val
	default:
		return 0
	}
}

// normalizeKrakenPair maps a BTC/USD style symbol to Kraken's pair format
func normalizeKrakenPair(symbol string) string {
	pair := strings.ReplaceAll(symbol, "/", "")
	// Kraken uses XBT for Bitcoin
	pair = strings.Replace(pair, "BTC", "XBT", 1)
	return pair
}

// krakenIntervalMinutes maps an interval code to Kraken's minute values
func krakenIntervalMinutes(interval string) int {
	switch interval {
	case "1m":
		return 1
	case "5m":
		return 5
	case "15m":
		return 15
	case "30m":
		return 30
	case "1h":
		return 60
	case "4h":
		return 240
	case "1d":
		return 1440
	case "1w":
		return 10080
	default:
		return 60
	}
}

// enforceRateLimit ensures requests don't exceed the API rate limits
func (k *KrakenRESTClient) enforceRateLimit() {
	elapsed := time.Since(k.lastCall)
	if elapsed < k.rateLimit {
		time.Sleep(k.rateLimit - elapsed)
	}
	k.lastCall = time.Now()
}
