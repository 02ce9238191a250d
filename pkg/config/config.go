package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `env:", prefix=SERVER_"`
	MySQL      MySQLConfig      `env:", prefix=MYSQL_"`
	InfluxDB   InfluxConfig     `env:", prefix=INFLUXDB_"`
	Redis      RedisConfig      `env:", prefix=REDIS_"`
	NATS       NATSConfig       `env:", prefix=NATS_"`
	Exchange   ExchangeConfig   `env:", prefix=EXCHANGE_"`
	Profile    ProfileConfig    `env:", prefix=PROFILE_"`
	Security   SecurityConfig   `env:", prefix=SECURITY_"`
	WebSocket  WebSocketConfig  `env:", prefix=WEBSOCKET_"`
	Logging    LoggingConfig    `env:", prefix=LOG_"`
	Monitoring MonitoringConfig `env:", prefix=MONITORING_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT, default=120s"`
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	Host            string        `env:"HOST, default=localhost"`
	Port            int           `env:"PORT, default=3306"`
	Database        string        `env:"DATABASE, default=vpback"`
	User            string        `env:"USER, default=vpback"`
	Password        string        `env:"PASSWORD, default=vpback123"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS, default=25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME, default=5m"`
}

// InfluxConfig holds InfluxDB configuration
type InfluxConfig struct {
	URL     string        `env:"URL, default=http://localhost:8086"`
	Token   string        `env:"TOKEN, default=my-super-secret-auth-token"`
	Org     string        `env:"ORG, default=vpback-org"`
	Bucket  string        `env:"BUCKET, default=marketdata"`
	Timeout time.Duration `env:"TIMEOUT, default=10s"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `env:"HOST, default=localhost"`
	Port         int           `env:"PORT, default=6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB, default=0"`
	PoolSize     int           `env:"POOL_SIZE, default=10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS, default=5"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT, default=5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=3s"`
	CandleTTL    time.Duration `env:"CANDLE_TTL, default=30s"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL           string        `env:"URL, default=nats://localhost:4222"`
	MaxReconnect  int           `env:"MAX_RECONNECT, default=10"`
	ReconnectWait time.Duration `env:"RECONNECT_WAIT, default=2s"`
	DrainTimeout  time.Duration `env:"DRAIN_TIMEOUT, default=30s"`
}

// ExchangeConfig holds exchange configuration
type ExchangeConfig struct {
	Source           string        `env:"SOURCE, default=kraken"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT, default=30s"`
	RateLimit        time.Duration `env:"RATE_LIMIT, default=100ms"`
	StreamEnabled    bool          `env:"STREAM_ENABLED, default=false"`
	ReconnectDelay   time.Duration `env:"RECONNECT_DELAY, default=1s"`
	MaxReconnects    int           `env:"MAX_RECONNECTS, default=10"`
	KrakenAPIURL     string        `env:"KRAKEN_API_URL, default=https://api.kraken.com"`
	BinanceAPIURL    string        `env:"BINANCE_API_URL, default=https://api.binance.com"`
	BinanceAPIKey    string        `env:"BINANCE_API_KEY"`
	BinanceSecretKey string        `env:"BINANCE_SECRET_KEY"`
}

// ProfileConfig holds volume profile computation configuration
type ProfileConfig struct {
	Symbols        []string      `env:"SYMBOLS, default=BTC/USD"`
	Interval       string        `env:"INTERVAL, default=1h"`
	WindowLength   int           `env:"WINDOW_LENGTH, default=300"`
	BinCount       int           `env:"BIN_COUNT, default=100"`
	VAFraction     float64       `env:"VA_FRACTION, default=0.7"`
	RiskReward     float64       `env:"RISK_REWARD, default=2.0"`
	RecalcInterval time.Duration `env:"RECALC_INTERVAL, default=1m"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	CORSEnabled bool     `env:"CORS_ENABLED, default=true"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`
	CORSMethods []string `env:"CORS_METHODS, default=GET,POST,PUT,DELETE,OPTIONS"`
	CORSHeaders []string `env:"CORS_HEADERS, default=*"`
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `env:"ENABLED, default=true"`
	ReadBufferSize  int           `env:"READ_BUFFER_SIZE, default=1024"`
	WriteBufferSize int           `env:"WRITE_BUFFER_SIZE, default=1024"`
	PingInterval    time.Duration `env:"PING_INTERVAL, default=30s"`
	PongTimeout     time.Duration `env:"PONG_TIMEOUT, default=60s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT, default=10s"`
	MaxClients      int           `env:"MAX_CLIENTS, default=1000"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=json"`
	Output string `env:"OUTPUT, default=stdout"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	MetricsEnabled bool `env:"METRICS_ENABLED, default=true"`
	MetricsPort    int  `env:"METRICS_PORT, default=9090"`
}

// Load loads configuration from environment variables using go-envconfig
func Load() (*Config, error) {
	ctx := context.Background()
	var cfg Config

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration. Profile parameters are rejected
// eagerly here so the computation never sees out-of-range values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.InfluxDB.URL == "" {
		return fmt.Errorf("influxdb URL is required")
	}

	if c.NATS.URL == "" {
		return fmt.Errorf("NATS URL is required")
	}

	if len(c.Profile.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}

	return c.Profile.Validate()
}

// Bounds for the candle window length
const (
	MinWindowLength = 50
	MaxWindowLength = 2000
)

// Validate checks the profile computation parameters
func (p *ProfileConfig) Validate() error {
	if p.BinCount < 2 {
		return fmt.Errorf("bin count must be >= 2, got %d", p.BinCount)
	}
	if p.VAFraction <= 0 || p.VAFraction >= 1 {
		return fmt.Errorf("value area fraction must be in (0, 1), got %g", p.VAFraction)
	}
	if p.RiskReward <= 0 {
		return fmt.Errorf("risk/reward must be > 0, got %g", p.RiskReward)
	}
	if p.WindowLength < MinWindowLength || p.WindowLength > MaxWindowLength {
		return fmt.Errorf("window length must be in [%d, %d], got %d", MinWindowLength, MaxWindowLength, p.WindowLength)
	}
	return nil
}

// DSN returns the MySQL connection string
func (m *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		m.User,
		m.Password,
		m.Host,
		m.Port,
		m.Database,
	)
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
