package vp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vp-back/internal/cache"
	"github.com/vp-back/internal/database"
	"github.com/vp-back/internal/exchange"
	"github.com/vp-back/internal/messaging"
	"github.com/vp-back/internal/metrics"
	"github.com/vp-back/internal/profile"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// Calculator computes volume profiles and trade signals for tracked symbols
type Calculator struct {
	source exchange.CandleSource
	influx *database.InfluxClient
	redis  *cache.RedisClient
	nats   *messaging.NATSClient
	logger *logrus.Entry
	cfg    *config.ProfileConfig
	opts   profile.Options
	stats  *metrics.Metrics

	// Symbol tracking
	symbols map[string]*symbolState
	mu      sync.RWMutex

	// Control
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// symbolState holds per-symbol bookkeeping between recalculations
type symbolState struct {
	Symbol     string
	LastBar    time.Time
	LastCalc   time.Time
	LastSignal models.SignalKind
}

// NewCalculator creates a new volume profile calculator
func NewCalculator(
	source exchange.CandleSource,
	influx *database.InfluxClient,
	redis *cache.RedisClient,
	nats *messaging.NATSClient,
	cfg *config.ProfileConfig,
	logger *logrus.Logger,
) *Calculator {
	return &Calculator{
		source: source,
		influx: influx,
		redis:  redis,
		nats:   nats,
		logger: logger.WithField("component", "vp"),
		cfg:    cfg,
		opts: profile.Options{
			BinCount:   cfg.BinCount,
			VAFraction: cfg.VAFraction,
			RiskReward: cfg.RiskReward,
		},
		symbols: make(map[string]*symbolState),
		done:    make(chan struct{}),
	}
}

// SetMetrics attaches Prometheus metrics. Must be called before Start.
func (c *Calculator) SetMetrics(m *metrics.Metrics) {
	c.stats = m
}

// Start starts the calculation loop for the configured symbols
func (c *Calculator) Start(ctx context.Context) error {
	if c.running {
		return fmt.Errorf("calculator already running")
	}

	if err := c.opts.Validate(); err != nil {
		return err
	}

	for _, symbol := range c.cfg.Symbols {
		c.AddSymbol(symbol)
	}

	c.running = true
	c.logger.WithFields(logrus.Fields{
		"symbols":  len(c.cfg.Symbols),
		"interval": c.cfg.Interval,
		"window":   c.cfg.WindowLength,
	}).Info("Starting volume profile calculator")

	c.wg.Add(1)
	go c.calculationLoop(ctx)

	return nil
}

// Stop stops the calculator
func (c *Calculator) Stop() error {
	if !c.running {
		return nil
	}

	c.logger.Info("Stopping volume profile calculator")
	close(c.done)
	c.wg.Wait()
	c.running = false

	return nil
}

// AddSymbol adds a symbol to track
func (c *Calculator) AddSymbol(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.symbols[symbol]; !exists {
		c.symbols[symbol] = &symbolState{Symbol: symbol}
	}
}

// Symbols returns the currently tracked symbols
func (c *Calculator) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	symbols := make([]string, 0, len(c.symbols))
	for symbol := range c.symbols {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// OnCandle handles a closed candle from the exchange stream. The bar is
// persisted and published, and the symbol is recalculated on the next tick.
func (c *Calculator) OnCandle(candle models.Candle) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.influx != nil {
		if err := c.influx.WriteCandle(ctx, &candle, c.cfg.Interval); err != nil {
			c.logger.WithError(err).WithField("symbol", candle.Symbol).Error("Failed to persist candle")
		}
	}

	if c.nats != nil {
		if err := c.nats.PublishCandle(&candle); err != nil {
			c.logger.WithError(err).WithField("symbol", candle.Symbol).Warn("Failed to publish candle")
		}
	}

	// Drop every cached object for the symbol so the next recalculation
	// refetches the window and republishes fresh levels
	if err := c.redis.DeletePattern(ctx, fmt.Sprintf("*:%s:*", candle.Symbol)); err != nil {
		c.logger.WithError(err).Debug("Failed to invalidate symbol cache")
	}

	c.mu.Lock()
	if state, exists := c.symbols[candle.Symbol]; exists {
		state.LastBar = candle.Timestamp
		// Force recalculation on the next tick
		state.LastCalc = time.Time{}
	}
	c.mu.Unlock()
}

// calculationLoop recomputes all tracked symbols on a fixed interval
func (c *Calculator) calculationLoop(ctx context.Context) {
	defer c.wg.Done()

	// Initial pass before the first tick
	c.calculateAll(ctx)

	ticker := time.NewTicker(c.cfg.RecalcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.calculateAll(ctx)
		}
	}
}

// calculateAll recomputes profiles for all symbols concurrently
func (c *Calculator) calculateAll(ctx context.Context) {
	symbols := c.Symbols()

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			if err := c.calculateForSymbol(ctx, s); err != nil {
				c.logger.WithError(err).WithField("symbol", s).Error("Failed to compute volume profile")
			}
		}(symbol)
	}

	wg.Wait()
}

// calculateForSymbol computes and distributes the profile for one symbol
func (c *Calculator) calculateForSymbol(ctx context.Context, symbol string) error {
	c.mu.RLock()
	state, exists := c.symbols[symbol]
	c.mu.RUnlock()

	if !exists {
		return fmt.Errorf("symbol not tracked: %s", symbol)
	}

	// Skip if a fresh result exists and no new bar arrived
	if time.Since(state.LastCalc) < c.cfg.RecalcInterval {
		return nil
	}

	window, err := c.loadWindow(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to load window: %w", err)
	}

	start := time.Now()
	vp, sig, err := profile.Compute(window, c.opts)
	if err != nil {
		return err
	}

	if c.stats != nil {
		c.stats.ProfilesComputed.Inc()
		c.stats.ComputeDur.Observe(time.Since(start).Seconds())
		c.stats.SignalsTotal.WithLabelValues(string(sig.Kind)).Inc()
	}

	vp.Symbol = symbol
	vp.Interval = c.cfg.Interval
	sig.Symbol = symbol
	sig.Interval = c.cfg.Interval

	c.distribute(ctx, state, vp, sig)

	c.mu.Lock()
	state.LastCalc = time.Now()
	state.LastSignal = sig.Kind
	c.mu.Unlock()

	return nil
}

// loadWindow fetches the candle window: Redis cache, then InfluxDB,
// then the exchange REST API as the source of truth.
func (c *Calculator) loadWindow(ctx context.Context, symbol string) ([]models.Candle, error) {
	candles, err := c.redis.GetCandles(ctx, symbol, c.cfg.Interval)
	if err == nil && len(candles) >= c.cfg.WindowLength {
		if c.stats != nil {
			c.stats.CacheHits.WithLabelValues("candles").Inc()
		}
		return candles[len(candles)-c.cfg.WindowLength:], nil
	}
	if c.stats != nil {
		c.stats.CacheMisses.WithLabelValues("candles").Inc()
	}

	if c.influx != nil {
		candles, err = c.influx.GetRecentCandles(ctx, symbol, c.cfg.Interval, c.cfg.WindowLength)
		if err == nil && len(candles) >= c.cfg.WindowLength {
			c.cacheWindow(ctx, symbol, candles)
			return candles, nil
		}
	}

	candles, err = c.source.GetCandles(ctx, symbol, c.cfg.Interval, c.cfg.WindowLength)
	if err != nil {
		if c.stats != nil {
			c.stats.FetchErrors.WithLabelValues(c.source.Name()).Inc()
		}
		return nil, err
	}
	if len(candles) == 0 {
		return nil, models.ErrNoData
	}
	if c.stats != nil {
		c.stats.CandlesFetched.WithLabelValues(c.source.Name()).Add(float64(len(candles)))
	}

	c.cacheWindow(ctx, symbol, candles)

	if c.influx != nil {
		if err := c.influx.WriteCandles(ctx, candles, c.cfg.Interval); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to persist window")
		}
	}

	return candles, nil
}

func (c *Calculator) cacheWindow(ctx context.Context, symbol string, candles []models.Candle) {
	if err := c.redis.SetCandles(ctx, symbol, c.cfg.Interval, candles); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Debug("Failed to cache window")
	}
}

// distribute caches, persists and publishes a computed profile and signal
func (c *Calculator) distribute(ctx context.Context, state *symbolState, vp *models.VolumeProfile, sig *models.Signal) {
	symbol := vp.Symbol

	if err := c.redis.SetProfile(ctx, symbol, vp); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to cache profile")
	}
	if err := c.redis.SetSignal(ctx, symbol, sig); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to cache signal")
	}

	if c.influx != nil {
		if err := c.influx.WriteProfile(ctx, vp); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to persist profile")
		}
	}

	if c.nats != nil {
		if err := c.nats.PublishProfile(vp); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to publish profile")
		}
		if err := c.nats.PublishSignal(sig); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to publish signal")
		}
	}

	// Log actionable signals once per transition, not on every recalc
	if sig.Actionable() && sig.Kind != state.LastSignal {
		c.logger.WithFields(logrus.Fields{
			"symbol":      symbol,
			"kind":        sig.Kind,
			"entry":       sig.Entry,
			"stop_loss":   sig.StopLoss,
			"take_profit": sig.TakeProfit,
		}).Info("Trade signal")
	}
}

// GetProfile returns the current profile for a symbol, computing on cache miss
func (c *Calculator) GetProfile(ctx context.Context, symbol string) (*models.VolumeProfile, error) {
	vp, err := c.redis.GetProfile(ctx, symbol, c.cfg.Interval)
	if err == nil && vp != nil {
		return vp, nil
	}

	window, err := c.loadWindow(ctx, symbol)
	if err != nil {
		return nil, err
	}

	vp, _, err = profile.Compute(window, c.opts)
	if err != nil {
		return nil, err
	}

	vp.Symbol = symbol
	vp.Interval = c.cfg.Interval
	return vp, nil
}

// GetSignal returns the current signal for a symbol, computing on cache miss
func (c *Calculator) GetSignal(ctx context.Context, symbol string) (*models.Signal, error) {
	sig, err := c.redis.GetSignal(ctx, symbol, c.cfg.Interval)
	if err == nil && sig != nil {
		return sig, nil
	}

	window, err := c.loadWindow(ctx, symbol)
	if err != nil {
		return nil, err
	}

	_, sig, err = profile.Compute(window, c.opts)
	if err != nil {
		return nil, err
	}

	sig.Symbol = symbol
	sig.Interval = c.cfg.Interval
	return sig, nil
}

// FetchWindow fetches a candle window of the given length straight from
// the exchange, bypassing caches.
func (c *Calculator) FetchWindow(ctx context.Context, symbol string, windowLength int) ([]models.Candle, error) {
	candles, err := c.source.GetCandles(ctx, symbol, c.cfg.Interval, windowLength)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, models.ErrNoData
	}
	return candles, nil
}

// ComputeWith recomputes a profile and signal for a symbol with explicit
// options, bypassing caches. Used by the API for per-request overrides.
func (c *Calculator) ComputeWith(ctx context.Context, symbol string, windowLength int, opts profile.Options) (*models.VolumeProfile, *models.Signal, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	window, err := c.source.GetCandles(ctx, symbol, c.cfg.Interval, windowLength)
	if err != nil {
		return nil, nil, err
	}
	if len(window) == 0 {
		return nil, nil, models.ErrNoData
	}

	vp, sig, err := profile.Compute(window, opts)
	if err != nil {
		return nil, nil, err
	}

	vp.Symbol = symbol
	vp.Interval = c.cfg.Interval
	sig.Symbol = symbol
	sig.Interval = c.cfg.Interval
	return vp, sig, nil
}
