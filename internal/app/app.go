package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vp-back/internal/api"
	"github.com/vp-back/internal/cache"
	"github.com/vp-back/internal/database"
	"github.com/vp-back/internal/exchange"
	"github.com/vp-back/internal/indicator/vp"
	"github.com/vp-back/internal/messaging"
	"github.com/vp-back/internal/metrics"
	"github.com/vp-back/internal/websocket"
	"github.com/vp-back/pkg/config"
)

// App represents the main application
type App struct {
	cfg    *config.Config
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Core components
	source     exchange.CandleSource
	streamer   *exchange.KlineStreamer
	influxDB   *database.InfluxClient
	mysqlDB    *database.MySQLClient
	redisCache *cache.RedisClient
	natsClient *messaging.NATSClient
	wsHub      *websocket.Hub

	// Services
	calculator *vp.Calculator
	apiServer  *api.Server
	stats      *metrics.Metrics
	metricsSrv *metrics.Server
}

// New creates a new application instance
func New(cfg *config.Config, logger *logrus.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Initialize initializes all application components
func (a *App) Initialize() error {
	if a.cfg.Monitoring.MetricsEnabled {
		a.stats = metrics.New()
		a.metricsSrv = metrics.NewServer(a.cfg.Monitoring.MetricsPort, a.logger)
	}

	if err := a.initializeDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initializeCache(); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := a.initializeMessaging(); err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	if err := a.initializeExchange(); err != nil {
		return fmt.Errorf("failed to initialize exchange: %w", err)
	}

	a.initializeWebSocket()
	a.initializeAPIServer()

	return nil
}

// Start starts the application
func (a *App) Start() error {
	// Start WebSocket hub
	if a.wsHub != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.wsHub.Run(a.ctx)
		}()
	}

	// Start profile calculator
	if err := a.calculator.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start calculator: %w", err)
	}

	// Start kline stream for live bar updates
	if a.streamer != nil {
		if err := a.streamer.Connect(a.ctx); err != nil {
			a.logger.WithError(err).Warn("Failed to connect kline stream, continuing with polling only")
		}
	}

	// Start metrics server
	if a.metricsSrv != nil {
		a.metricsSrv.Start()
	}

	// Start API server
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the application
func (a *App) Stop() error {
	a.logger.Info("Stopping application...")

	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("All goroutines stopped")
	case <-time.After(3 * time.Second):
		a.logger.Warn("Timeout waiting for goroutines to finish")
	}

	a.stopServicesWithTimeout()

	if err := a.closeConnections(); err != nil {
		a.logger.WithError(err).Error("Error closing connections")
	}

	a.logger.Info("Application stopped")
	return nil
}

// stopServicesWithTimeout stops each service with a timeout
func (a *App) stopServicesWithTimeout() {
	if a.apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.apiServer.Stop(ctx); err != nil {
			a.logger.WithError(err).Error("Error stopping API server")
		}
		cancel()
	}

	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.metricsSrv.Stop(ctx); err != nil {
			a.logger.WithError(err).Error("Error stopping metrics server")
		}
		cancel()
	}

	if a.streamer != nil {
		a.streamer.Disconnect()
	}

	if a.calculator != nil {
		if err := a.calculator.Stop(); err != nil {
			a.logger.WithError(err).Error("Error stopping calculator")
		}
	}
}

// Private initialization methods

func (a *App) initializeDatabase() error {
	// MySQL is optional; the registry degrades to the configured symbol list
	mysqlClient, err := database.NewMySQLClient(&a.cfg.MySQL, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("MySQL unavailable, symbol registry disabled")
	} else {
		a.mysqlDB = mysqlClient
	}

	a.influxDB = database.NewInfluxClient(&a.cfg.InfluxDB, a.logger)

	if err := a.influxDB.Health(a.ctx); err != nil {
		return fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	return nil
}

func (a *App) initializeCache() error {
	redisClient, err := cache.NewRedisClient(&a.cfg.Redis, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.redisCache = redisClient

	return nil
}

func (a *App) initializeMessaging() error {
	natsClient, err := messaging.NewNATSClient(&a.cfg.NATS, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.natsClient = natsClient

	return nil
}

func (a *App) initializeExchange() error {
	switch a.cfg.Exchange.Source {
	case "binance":
		a.source = exchange.NewBinanceRESTClient(&a.cfg.Exchange, a.logger)
	case "kraken", "":
		a.source = exchange.NewKrakenRESTClient(&a.cfg.Exchange, a.logger)
	default:
		return fmt.Errorf("unknown exchange source: %q", a.cfg.Exchange.Source)
	}

	a.calculator = vp.NewCalculator(
		a.source,
		a.influxDB,
		a.redisCache,
		a.natsClient,
		&a.cfg.Profile,
		a.logger,
	)
	if a.stats != nil {
		a.calculator.SetMetrics(a.stats)
	}

	// Live kline streaming is only available through Binance
	if a.cfg.Exchange.StreamEnabled && a.cfg.Exchange.Source == "binance" {
		a.streamer = exchange.NewKlineStreamer(
			a.cfg.Profile.Symbols,
			a.cfg.Profile.Interval,
			&a.cfg.Exchange,
			a.calculator.OnCandle,
			a.logger,
		)
		if a.stats != nil {
			a.streamer.SetMetrics(a.stats)
		}
	}

	return nil
}

func (a *App) initializeWebSocket() {
	if !a.cfg.WebSocket.Enabled {
		return
	}

	a.wsHub = websocket.NewHub(a.natsClient, &a.cfg.WebSocket, a.logger)
	if a.stats != nil {
		a.wsHub.SetMetrics(a.stats)
	}
}

func (a *App) initializeAPIServer() {
	a.apiServer = api.NewServer(
		a.cfg,
		a.logger,
		a.influxDB,
		a.mysqlDB,
		a.redisCache,
		a.natsClient,
		a.calculator,
		a.wsHub,
	)
}

func (a *App) closeConnections() error {
	var errs []error

	if a.mysqlDB != nil {
		if err := a.mysqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close MySQL: %w", err))
		}
	}

	if a.influxDB != nil {
		a.influxDB.Close()
	}

	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if a.natsClient != nil {
		if err := a.natsClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close NATS: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}

	return nil
}
