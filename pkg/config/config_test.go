package config

import (
	"testing"
)

func validProfile() ProfileConfig {
	return ProfileConfig{
		Symbols:      []string{"BTC/USD"},
		Interval:     "1h",
		WindowLength: 300,
		BinCount:     100,
		VAFraction:   0.7,
		RiskReward:   2.0,
	}
}

func TestProfileConfig_Validate(t *testing.T) {
	p := validProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestProfileConfig_ValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ProfileConfig)
	}{
		{"bin count below two", func(p *ProfileConfig) { p.BinCount = 1 }},
		{"zero va fraction", func(p *ProfileConfig) { p.VAFraction = 0 }},
		{"va fraction of one", func(p *ProfileConfig) { p.VAFraction = 1 }},
		{"negative risk reward", func(p *ProfileConfig) { p.RiskReward = -2 }},
		{"window too short", func(p *ProfileConfig) { p.WindowLength = MinWindowLength - 1 }},
		{"window too long", func(p *ProfileConfig) { p.WindowLength = MaxWindowLength + 1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProfile()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "localhost", Port: 6379}
	if got := cfg.Addr(); got != "localhost:6379" {
		t.Errorf("Addr() = %q, want localhost:6379", got)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := MySQLConfig{
		Host:     "db",
		Port:     3306,
		Database: "vpback",
		User:     "vpback",
		Password: "secret",
	}

	want := "vpback:secret@tcp(db:3306)/vpback?parseTime=true&multiStatements=true"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
