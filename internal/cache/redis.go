package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// RedisClient handles Redis caching operations
type RedisClient struct {
	client    *redis.Client
	logger    *logrus.Entry
	cfg       *config.RedisConfig
	candleTTL time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig, logger *logrus.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
		MaxRetries:   2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisClient{
		client:    client,
		logger:    logger.WithField("component", "redis"),
		cfg:       cfg,
		candleTTL: cfg.CandleTTL,
	}, nil
}

// Close closes the Redis connection
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// Health checks Redis health
func (rc *RedisClient) Health(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Candle operations

// SetCandles caches a candle window for a symbol and interval. The short
// TTL keeps repeated computations within one refresh cycle from hitting
// the exchange again.
func (rc *RedisClient) SetCandles(ctx context.Context, symbol, interval string, candles []models.Candle) error {
	key := fmt.Sprintf("candles:%s:%s", symbol, interval)

	data, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("failed to marshal candles: %w", err)
	}

	return rc.client.Set(ctx, key, data, rc.candleTTL).Err()
}

// GetCandles returns the cached candle window, or nil on a miss
func (rc *RedisClient) GetCandles(ctx context.Context, symbol, interval string) ([]models.Candle, error) {
	key := fmt.Sprintf("candles:%s:%s", symbol, interval)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candles: %w", err)
	}

	var candles []models.Candle
	if err := json.Unmarshal([]byte(data), &candles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candles: %w", err)
	}

	return candles, nil
}

// Profile operations

// SetProfile caches the latest volume profile for a symbol
func (rc *RedisClient) SetProfile(ctx context.Context, symbol string, vp *models.VolumeProfile) error {
	key := fmt.Sprintf("profile:%s:%s", symbol, vp.Interval)

	data, err := json.Marshal(vp)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	return rc.client.Set(ctx, key, data, 24*time.Hour).Err()
}

// GetProfile returns the cached volume profile, or nil on a miss
func (rc *RedisClient) GetProfile(ctx context.Context, symbol, interval string) (*models.VolumeProfile, error) {
	key := fmt.Sprintf("profile:%s:%s", symbol, interval)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var vp models.VolumeProfile
	if err := json.Unmarshal([]byte(data), &vp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	return &vp, nil
}

// Signal operations

// SetSignal caches the latest signal for a symbol
func (rc *RedisClient) SetSignal(ctx context.Context, symbol string, sig *models.Signal) error {
	key := fmt.Sprintf("signal:%s:%s", symbol, sig.Interval)

	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}

	return rc.client.Set(ctx, key, data, 24*time.Hour).Err()
}

// GetSignal returns the cached signal, or nil on a miss
func (rc *RedisClient) GetSignal(ctx context.Context, symbol, interval string) (*models.Signal, error) {
	key := fmt.Sprintf("signal:%s:%s", symbol, interval)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}

	var sig models.Signal
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal: %w", err)
	}

	return &sig, nil
}

// Utility operations

// SetJSON stores a JSON-encoded value
func (rc *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return rc.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON retrieves and decodes a JSON value; the bool reports a hit
func (rc *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return true, nil
}

// DeletePattern deletes all keys matching a pattern
func (rc *RedisClient) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	var keys []string

	for {
		var err error
		var batch []string
		batch, cursor, err = rc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	if len(keys) > 0 {
		return rc.client.Del(ctx, keys...).Err()
	}

	return nil
}
