package models

import (
	"time"
)

// SignalKind is the trade decision derived from a volume profile
type SignalKind string

const (
	SignalLong  SignalKind = "LONG"
	SignalShort SignalKind = "SHORT"
	SignalWait  SignalKind = "WAIT"
)

// Signal is a mean-reversion trade signal. Entry, StopLoss and TakeProfit
// are only set when Kind is not WAIT.
type Signal struct {
	Symbol     string     `json:"symbol"`
	Interval   string     `json:"interval"`
	Kind       SignalKind `json:"kind"`
	Entry      float64    `json:"entry,omitempty"`
	StopLoss   float64    `json:"stop_loss,omitempty"`
	TakeProfit float64    `json:"take_profit,omitempty"`
	POC        float64    `json:"poc"`
	VAH        float64    `json:"vah"`
	VAL        float64    `json:"val"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Actionable reports whether the signal carries an entry
func (s *Signal) Actionable() bool {
	return s.Kind == SignalLong || s.Kind == SignalShort
}
