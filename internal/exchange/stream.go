package exchange

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	binance "github.com/binance/binance-connector-go"
	"github.com/sirupsen/logrus"
	"github.com/vp-back/internal/metrics"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// KlineStreamer subscribes to live Binance kline streams and forwards
// closed candles to a handler, so profiles can be recomputed on bar close
// instead of waiting for the next poll tick.
type KlineStreamer struct {
	client   *binance.WebsocketStreamClient
	symbols  []string
	interval string
	handler  CandleHandler
	logger   *logrus.Entry
	cfg      *config.ExchangeConfig
	stats    *metrics.Metrics

	connected atomic.Bool
	stopCh    chan struct{}
	mu        sync.Mutex
}

// NewKlineStreamer creates a streamer for the given symbols and interval
func NewKlineStreamer(symbols []string, interval string, cfg *config.ExchangeConfig, handler CandleHandler, logger *logrus.Logger) *KlineStreamer {
	return &KlineStreamer{
		symbols:  symbols,
		interval: interval,
		handler:  handler,
		logger:   logger.WithField("component", "kline-stream"),
		cfg:      cfg,
	}
}

// SetMetrics attaches Prometheus metrics. Must be called before Connect.
func (ks *KlineStreamer) SetMetrics(m *metrics.Metrics) {
	ks.stats = m
}

// Connect opens the combined kline stream and starts forwarding closed
// candles. It reconnects with a delay until the context is cancelled or
// the reconnect budget is exhausted.
func (ks *KlineStreamer) Connect(ctx context.Context) error {
	ks.client = binance.NewWebsocketStreamClient(true)

	pairs := make(map[string]string, len(ks.symbols))
	for _, symbol := range ks.symbols {
		pairs[normalizeBinanceSymbol(symbol)] = ks.interval
	}

	doneCh, stopCh, err := ks.client.WsCombinedKlineServe(pairs, ks.klineHandler(), ks.errorHandler())
	if err != nil {
		return err
	}

	ks.mu.Lock()
	ks.stopCh = stopCh
	ks.mu.Unlock()
	ks.connected.Store(true)

	ks.logger.WithFields(logrus.Fields{
		"symbols":  len(ks.symbols),
		"interval": ks.interval,
	}).Info("Kline stream connected")

	go ks.monitor(ctx, doneCh)
	return nil
}

// Disconnect closes the stream
func (ks *KlineStreamer) Disconnect() {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.stopCh != nil {
		close(ks.stopCh)
		ks.stopCh = nil
	}
	ks.connected.Store(false)
}

// IsConnected reports whether the stream is live
func (ks *KlineStreamer) IsConnected() bool {
	return ks.connected.Load()
}

func (ks *KlineStreamer) klineHandler() binance.WsKlineHandler {
	return func(event *binance.WsKlineEvent) {
		if event == nil || !event.Kline.IsFinal {
			return
		}

		k := event.Kline
		candle := models.Candle{
			Symbol:     denormalizeBinanceSymbol(event.Symbol, ks.symbols),
			Timestamp:  time.UnixMilli(k.StartTime).UTC(),
			Open:       parseStreamFloat(k.Open),
			High:       parseStreamFloat(k.High),
			Low:        parseStreamFloat(k.Low),
			Close:      parseStreamFloat(k.Close),
			Volume:     parseStreamFloat(k.Volume),
			TradeCount: k.TradeNum,
		}

		ks.handler(candle)
	}
}

func (ks *KlineStreamer) errorHandler() binance.ErrHandler {
	return func(err error) {
		ks.logger.WithError(err).Warn("Kline stream error")
	}
}

// monitor reconnects the stream when the underlying connection drops
func (ks *KlineStreamer) monitor(ctx context.Context, doneCh chan struct{}) {
	select {
	case <-ctx.Done():
		ks.Disconnect()
	case <-doneCh:
		ks.connected.Store(false)
		if ctx.Err() != nil {
			return
		}

		ks.logger.Warn("Kline stream closed, reconnecting")
		for attempt := 1; attempt <= ks.cfg.MaxReconnects; attempt++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(ks.cfg.ReconnectDelay * time.Duration(attempt)):
			}

			if ks.stats != nil {
				ks.stats.StreamReconnects.Inc()
			}
			if err := ks.Connect(ctx); err != nil {
				ks.logger.WithError(err).WithField("attempt", attempt).Warn("Reconnect failed")
				continue
			}
			return
		}
		ks.logger.Error("Kline stream reconnect budget exhausted")
	}
}

// denormalizeBinanceSymbol maps a Binance stream symbol (BTCUSDT) back to
// the configured symbol form (BTC/USD) when one matches.
func denormalizeBinanceSymbol(streamSymbol string, configured []string) string {
	for _, symbol := range configured {
		if normalizeBinanceSymbol(symbol) == streamSymbol {
			return symbol
		}
	}
	return streamSymbol
}

func parseStreamFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
