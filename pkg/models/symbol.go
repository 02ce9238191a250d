package models

import (
	"time"
)

// SymbolInfo describes a tradable instrument tracked by the scanner
type SymbolInfo struct {
	ID            int       `json:"id" db:"id"`
	Exchange      string    `json:"exchange" db:"exchange"`
	Symbol        string    `json:"symbol" db:"symbol"`
	BaseCurrency  string    `json:"base_currency" db:"base_currency"`
	QuoteCurrency string    `json:"quote_currency" db:"quote_currency"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
