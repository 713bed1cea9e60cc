package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Screening thresholds.
var (
	ScreenMinMarketCap     = decimal.RequireFromString("10000000000") // strict >
	ScreenMinIV            = decimal.NewFromInt(20)
	ScreenMaxIV            = decimal.NewFromInt(40)
	ScreenMinBeta          = decimal.RequireFromString("0.5")
	ScreenMaxBeta          = decimal.RequireFromString("1.5")
	ScreenMinDividendYield = decimal.NewFromInt(2)
	ScreenMaxDividendYield = decimal.NewFromInt(6)
)

const ScreenMinOptionsVolume = 1000 // strict >

type UnderlyingConfig struct {
	Symbol            string
	CurrentPrice      decimal.Decimal
	MarketCap         decimal.Decimal
	Beta              decimal.Decimal
	DividendYield     decimal.Decimal // percent
	PERatio           decimal.Decimal
	Sector            string
	ImpliedVolatility decimal.Decimal // percent
	OptionsVolume     int64
}

// Underlying is an immutable snapshot of the equity and its screening attributes.
type Underlying struct {
	Symbol            string          `json:"symbol"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	MarketCap         decimal.Decimal `json:"market_cap"`
	Beta              decimal.Decimal `json:"beta"`
	DividendYield     decimal.Decimal `json:"dividend_yield"`
	PERatio           decimal.Decimal `json:"pe_ratio"`
	Sector            string          `json:"sector"`
	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
	OptionsVolume     int64           `json:"options_volume"`
}

func NewUnderlying(cfg UnderlyingConfig) (Underlying, error) {
	symbol := strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if symbol == "" {
		return Underlying{}, fmt.Errorf("%w: underlying symbol is required", ErrInvalidConfig)
	}
	if !cfg.CurrentPrice.IsPositive() {
		return Underlying{}, fmt.Errorf("%w: current price of %s must be positive", ErrInvalidConfig, symbol)
	}
	if cfg.OptionsVolume < 0 {
		return Underlying{}, fmt.Errorf("%w: options volume of %s must not be negative", ErrInvalidConfig, symbol)
	}

	return Underlying{
		Symbol:            symbol,
		CurrentPrice:      cfg.CurrentPrice,
		MarketCap:         cfg.MarketCap,
		Beta:              cfg.Beta,
		DividendYield:     cfg.DividendYield,
		PERatio:           cfg.PERatio,
		Sector:            cfg.Sector,
		ImpliedVolatility: cfg.ImpliedVolatility,
		OptionsVolume:     cfg.OptionsVolume,
	}, nil
}

// MeetsScreeningCriteria is true only when every check in ScreeningFailures passes.
func (u Underlying) MeetsScreeningCriteria() bool {
	return len(u.ScreeningFailures()) == 0
}

// ScreeningFailures lists the reasons the underlying is eliminated, in check order.
func (u Underlying) ScreeningFailures() []string {
	var failures []string

	if !u.MarketCap.GreaterThan(ScreenMinMarketCap) {
		failures = append(failures, fmt.Sprintf("market cap %s not above %s", u.MarketCap, ScreenMinMarketCap))
	}
	if u.OptionsVolume <= ScreenMinOptionsVolume {
		failures = append(failures, fmt.Sprintf("options volume %d not above %d", u.OptionsVolume, ScreenMinOptionsVolume))
	}
	if !between(u.ImpliedVolatility, ScreenMinIV, ScreenMaxIV) {
		failures = append(failures, fmt.Sprintf("implied volatility %s outside [%s, %s]", u.ImpliedVolatility, ScreenMinIV, ScreenMaxIV))
	}
	if !between(u.Beta, ScreenMinBeta, ScreenMaxBeta) {
		failures = append(failures, fmt.Sprintf("beta %s outside [%s, %s]", u.Beta, ScreenMinBeta, ScreenMaxBeta))
	}
	if !between(u.DividendYield, ScreenMinDividendYield, ScreenMaxDividendYield) {
		failures = append(failures, fmt.Sprintf("dividend yield %s outside [%s, %s]", u.DividendYield, ScreenMinDividendYield, ScreenMaxDividendYield))
	}

	return failures
}

// EffectivePurchasePrice is the cost basis per share if a put at putStrike is assigned.
func (u Underlying) EffectivePurchasePrice(putStrike, premium decimal.Decimal) decimal.Decimal {
	return putStrike.Sub(premium)
}

// MaxCoveredCallProfit per share: premium plus the gain from purchasePrice up to the call strike.
func (u Underlying) MaxCoveredCallProfit(strikePrice, premium, purchasePrice decimal.Decimal) decimal.Decimal {
	return premium.Add(strikePrice.Sub(purchasePrice))
}

func between(v, lo, hi decimal.Decimal) bool {
	return v.GreaterThanOrEqual(lo) && v.LessThanOrEqual(hi)
}
