package model

import (
	"errors"
	"testing"
)

// passing: market cap > 10e9, options volume > 1000, 20 <= IV <= 40,
// 0.5 <= beta <= 1.5, 2 <= dividend yield <= 6
func screenedConfig() UnderlyingConfig {
	return UnderlyingConfig{
		Symbol:            "ko",
		CurrentPrice:      d("62.40"),
		MarketCap:         d("270000000000"),
		Beta:              d("0.6"),
		DividendYield:     d("3.1"),
		PERatio:           d("24.5"),
		Sector:            "Consumer Staples",
		ImpliedVolatility: d("22"),
		OptionsVolume:     45000,
	}
}

func TestNewUnderlying(t *testing.T) {
	u, err := NewUnderlying(screenedConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Symbol != "KO" {
		t.Fatalf("expected normalized symbol KO, got %q", u.Symbol)
	}

	cfg := screenedConfig()
	cfg.CurrentPrice = d("0")
	if _, err := NewUnderlying(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero price, got %v", err)
	}
}

func TestUnderlying_MeetsScreeningCriteria(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UnderlyingConfig)
		want   bool
	}{
		{name: "all checks pass", mutate: func(c *UnderlyingConfig) {}, want: true},
		{name: "market cap exactly 10e9 fails", mutate: func(c *UnderlyingConfig) { c.MarketCap = d("10000000000") }, want: false},
		{name: "options volume exactly 1000 fails", mutate: func(c *UnderlyingConfig) { c.OptionsVolume = 1000 }, want: false},
		{name: "iv at lower bound 20 passes", mutate: func(c *UnderlyingConfig) { c.ImpliedVolatility = d("20") }, want: true},
		{name: "iv at upper bound 40 passes", mutate: func(c *UnderlyingConfig) { c.ImpliedVolatility = d("40") }, want: true},
		{name: "iv 19.99 fails", mutate: func(c *UnderlyingConfig) { c.ImpliedVolatility = d("19.99") }, want: false},
		{name: "iv 40.01 fails", mutate: func(c *UnderlyingConfig) { c.ImpliedVolatility = d("40.01") }, want: false},
		{name: "beta 0.5 passes", mutate: func(c *UnderlyingConfig) { c.Beta = d("0.5") }, want: true},
		{name: "beta 1.5 passes", mutate: func(c *UnderlyingConfig) { c.Beta = d("1.5") }, want: true},
		{name: "beta 1.51 fails", mutate: func(c *UnderlyingConfig) { c.Beta = d("1.51") }, want: false},
		{name: "dividend 2 passes", mutate: func(c *UnderlyingConfig) { c.DividendYield = d("2") }, want: true},
		{name: "dividend 6 passes", mutate: func(c *UnderlyingConfig) { c.DividendYield = d("6") }, want: true},
		{name: "dividend 1.99 fails", mutate: func(c *UnderlyingConfig) { c.DividendYield = d("1.99") }, want: false},
		{name: "dividend 6.5 fails", mutate: func(c *UnderlyingConfig) { c.DividendYield = d("6.5") }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := screenedConfig()
			tt.mutate(&cfg)
			u, err := NewUnderlying(cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := u.MeetsScreeningCriteria(); got != tt.want {
				t.Fatalf("screening mismatch. got=%v want=%v failures=%v", got, tt.want, u.ScreeningFailures())
			}
		})
	}
}

func TestUnderlying_ScreeningFailuresListsEveryViolation(t *testing.T) {
	cfg := screenedConfig()
	cfg.MarketCap = d("5000000000")
	cfg.Beta = d("2.1")
	u, err := NewUnderlying(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if failures := u.ScreeningFailures(); len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d: %v", len(failures), failures)
	}
}

func TestUnderlying_PriceFormulas(t *testing.T) {
	u, err := NewUnderlying(screenedConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := u.EffectivePurchasePrice(d("60"), d("1.25")); !got.Equal(d("58.75")) {
		t.Fatalf("effective purchase price mismatch. got=%s want=58.75", got)
	}
	if got := u.MaxCoveredCallProfit(d("65"), d("0.80"), d("58.75")); !got.Equal(d("7.05")) {
		t.Fatalf("max covered call profit mismatch. got=%s want=7.05", got)
	}
}
