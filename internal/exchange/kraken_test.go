package exchange

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseKrakenResult(t *testing.T) {
	payload := map[string]json.RawMessage{
		"XXBTZUSD": json.RawMessage(`[
			[1709290800, "62000.1", "62500.0", "61800.5", "62400.2", "62100.0", "15.5", 321],
			[1709294400, "62400.2", "62900.0", "62300.0", "62850.7", "62600.0", "22.25", 510]
		]`),
		"last": json.RawMessage(`1709294400`),
	}

	candles, err := parseKrakenResult("BTC/USD", payload)
	if err != nil {
		t.Fatalf("parseKrakenResult failed: %v", err)
	}

	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}

	first := candles[0]
	if first.Symbol != "BTC/USD" {
		t.Errorf("symbol: got %s", first.Symbol)
	}
	if !first.Timestamp.Equal(time.Unix(1709290800, 0).UTC()) {
		t.Errorf("timestamp: got %v", first.Timestamp)
	}
	assertCloseF(t, "open", first.Open, 62000.1)
	assertCloseF(t, "high", first.High, 62500.0)
	assertCloseF(t, "low", first.Low, 61800.5)
	assertCloseF(t, "close", first.Close, 62400.2)
	assertCloseF(t, "volume", first.Volume, 15.5)
	if first.TradeCount != 321 {
		t.Errorf("trade count: got %d", first.TradeCount)
	}
}

func TestParseKrakenResult_SkipsShortRows(t *testing.T) {
	payload := map[string]json.RawMessage{
		"XETHZUSD": json.RawMessage(`[
			[1709290800, "3400.0"],
			[1709294400, "3400.0", "3450.0", "3390.0", "3420.0", "3410.0", "100.0", 50]
		]`),
	}

	candles, err := parseKrakenResult("ETH/USD", payload)
	if err != nil {
		t.Fatalf("parseKrakenResult failed: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
}

func TestNormalizeKrakenPair(t *testing.T) {
	cases := map[string]string{
		"BTC/USD": "XBTUSD",
		"ETH/USD": "ETHUSD",
		"BTC/EUR": "XBTEUR",
		"SOLUSD":  "SOLUSD",
	}
	for in, want := range cases {
		if got := normalizeKrakenPair(in); got != want {
			t.Errorf("normalizeKrakenPair(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKrakenIntervalMinutes(t *testing.T) {
	cases := map[string]int{
		"1m":      1,
		"15m":     15,
		"1h":      60,
		"4h":      240,
		"1d":      1440,
		"unknown": 60,
	}
	for in, want := range cases {
		if got := krakenIntervalMinutes(in); got != want {
			t.Errorf("krakenIntervalMinutes(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestNormalizeBinanceSymbol(t *testing.T) {
	cases := map[string]string{
		"BTC/USD":  "BTCUSDT",
		"BTC/USDT": "BTCUSDT",
		"eth/usd":  "ETHUSDT",
		"BNBUSDT":  "BNBUSDT",
	}
	for in, want := range cases {
		if got := normalizeBinanceSymbol(in); got != want {
			t.Errorf("normalizeBinanceSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func assertCloseF(t *testing.T, label string, got, want float64) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-9 {
		t.Errorf("%s: got %v, want %v", label, got, want)
	}
}
