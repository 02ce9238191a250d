package commands

import "testing"

func TestSplitPair(t *testing.T) {
	tests := []struct {
		symbol string
		base   string
		quote  string
	}{
		{"BTC/USD", "BTC", "USD"},
		{"ETH/USDT", "ETH", "USDT"},
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHUSD", "ETH", "USD"},
		{"SOLEUR", "SOL", "EUR"},
		{"ETHBTC", "ETH", "BTC"},
		{"USDT", "USDT", ""},
		{"DOGE", "DOGE", ""},
	}

	for _, tc := range tests {
		base, quote := splitPair(tc.symbol)
		if base != tc.base || quote != tc.quote {
			t.Errorf("splitPair(%q) = (%q, %q), want (%q, %q)", tc.symbol, base, quote, tc.base, tc.quote)
		}
	}
}
