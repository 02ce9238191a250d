package messaging

import "testing"

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BTC/USD", "BTCUSD"},
		{"BTCUSDT", "BTCUSDT"},
		{"XBT.USD", "XBTUSD"},
		{"BTC USD", "BTCUSD"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := subjectToken(tc.symbol); got != tc.want {
			t.Errorf("subjectToken(%q) = %q, want %q", tc.symbol, got, tc.want)
		}
	}
}
