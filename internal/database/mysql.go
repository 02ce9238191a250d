package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// MySQLClient handles MySQL database operations
type MySQLClient struct {
	db     *sql.DB
	logger *logrus.Entry
	cfg    *config.MySQLConfig
}

// NewMySQLClient creates a new MySQL client
func NewMySQLClient(cfg *config.MySQLConfig, logger *logrus.Logger) (*MySQLClient, error) {
	dsn := cfg.DSN()

	logger.WithField("dsn", fmt.Sprintf("%s:***@tcp(%s:%d)/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database)).Debug("Connecting to MySQL")

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return &MySQLClient{
		db:     db,
		logger: logger.WithField("component", "mysql"),
		cfg:    cfg,
	}, nil
}

// Close closes the database connection
func (mc *MySQLClient) Close() error {
	return mc.db.Close()
}

// Health checks database health
func (mc *MySQLClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return mc.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist
func (mc *MySQLClient) Migrate(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS symbols (
		id INT AUTO_INCREMENT PRIMARY KEY,
		exchange VARCHAR(32) NOT NULL,
		symbol VARCHAR(32) NOT NULL,
		base_currency VARCHAR(16) NOT NULL DEFAULT '',
		quote_currency VARCHAR(16) NOT NULL DEFAULT '',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uniq_exchange_symbol (exchange, symbol)
	)`

	if _, err := mc.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	mc.logger.Info("Database migration completed")
	return nil
}

// Symbol operations

// GetSymbols retrieves all active symbols
func (mc *MySQLClient) GetSymbols(ctx context.Context) ([]*models.SymbolInfo, error) {
	query := `
		SELECT id, exchange, symbol, base_currency, quote_currency,
		       is_active, created_at, updated_at
		FROM symbols
		WHERE is_active = 1
		ORDER BY symbol
	`

	rows, err := mc.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []*models.SymbolInfo
	for rows.Next() {
		symbol := &models.SymbolInfo{}
		err := rows.Scan(
			&symbol.ID,
			&symbol.Exchange,
			&symbol.Symbol,
			&symbol.BaseCurrency,
			&symbol.QuoteCurrency,
			&symbol.IsActive,
			&symbol.CreatedAt,
			&symbol.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return symbols, nil
}

// GetSymbol retrieves a single symbol by exchange and symbol name
func (mc *MySQLClient) GetSymbol(ctx context.Context, exchange, symbol string) (*models.SymbolInfo, error) {
	query := `
		SELECT id, exchange, symbol, base_currency, quote_currency,
		       is_active, created_at, updated_at
		FROM symbols
		WHERE exchange = ? AND symbol = ?
	`

	info := &models.SymbolInfo{}
	err := mc.db.QueryRowContext(ctx, query, exchange, symbol).Scan(
		&info.ID,
		&info.Exchange,
		&info.Symbol,
		&info.BaseCurrency,
		&info.QuoteCurrency,
		&info.IsActive,
		&info.CreatedAt,
		&info.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}

	return info, nil
}

// UpsertSymbol inserts a symbol or refreshes an existing row
func (mc *MySQLClient) UpsertSymbol(ctx context.Context, symbol *models.SymbolInfo) error {
	query := `
		INSERT INTO symbols (
			exchange, symbol, base_currency, quote_currency, is_active
		) VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			base_currency = VALUES(base_currency),
			quote_currency = VALUES(quote_currency),
			is_active = VALUES(is_active),
			updated_at = CURRENT_TIMESTAMP
	`

	result, err := mc.db.ExecContext(ctx, query,
		symbol.Exchange,
		symbol.Symbol,
		symbol.BaseCurrency,
		symbol.QuoteCurrency,
		symbol.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert symbol: %w", err)
	}

	if symbol.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil {
			symbol.ID = int(id)
		}
	}

	return nil
}

// DeactivateSymbol marks a symbol as inactive
func (mc *MySQLClient) DeactivateSymbol(ctx context.Context, exchange, symbol string) error {
	query := `UPDATE symbols SET is_active = 0 WHERE exchange = ? AND symbol = ?`

	_, err := mc.db.ExecContext(ctx, query, exchange, symbol)
	if err != nil {
		return fmt.Errorf("failed to deactivate symbol: %w", err)
	}

	return nil
}
