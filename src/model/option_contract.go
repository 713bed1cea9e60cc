package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	liquidityMaxSpread = decimal.RequireFromString("0.10")
)

const liquidityMinVolume = 100

// OptionContractConfig carries the market snapshot used to build an OptionContract.
// Greeks, spread and CreatedAt are optional; everything else is required.
type OptionContractConfig struct {
	Symbol     string
	Side       OptionSide
	Strike     decimal.Decimal
	Expiration time.Time
	Premium    decimal.Decimal

	Delta             decimal.Decimal
	Theta             decimal.Decimal
	Vega              decimal.Decimal
	Gamma             decimal.Decimal
	ImpliedVolatility decimal.Decimal

	BidAskSpread decimal.Decimal
	Volume       int64
	OpenInterest int64

	CreatedAt time.Time
}

// OptionContract is an immutable quote of a single option. Methods use value receivers
// and never modify the snapshot.
type OptionContract struct {
	Symbol            string          `json:"symbol"`
	Side              OptionSide      `json:"side"`
	Strike            decimal.Decimal `json:"strike"`
	Expiration        time.Time       `json:"expiration"`
	Premium           decimal.Decimal `json:"premium"` // per share
	Delta             decimal.Decimal `json:"delta"`
	Theta             decimal.Decimal `json:"theta"`
	Vega              decimal.Decimal `json:"vega"`
	Gamma             decimal.Decimal `json:"gamma"`
	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
	BidAskSpread      decimal.Decimal `json:"bid_ask_spread"`
	Volume            int64           `json:"volume"`
	OpenInterest      int64           `json:"open_interest"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewOptionContract validates cfg and returns the snapshot.
func NewOptionContract(cfg OptionContractConfig) (OptionContract, error) {
	symbol := strings.TrimSpace(cfg.Symbol)
	switch {
	case symbol == "":
		return OptionContract{}, fmt.Errorf("%w: option symbol is required", ErrInvalidConfig)
	case !cfg.Side.Valid():
		return OptionContract{}, fmt.Errorf("%w: unknown option side %q", ErrInvalidConfig, cfg.Side)
	case !cfg.Strike.IsPositive():
		return OptionContract{}, fmt.Errorf("%w: strike must be positive", ErrInvalidConfig)
	case cfg.Expiration.IsZero():
		return OptionContract{}, fmt.Errorf("%w: expiration is required", ErrInvalidConfig)
	case cfg.Premium.IsNegative():
		return OptionContract{}, fmt.Errorf("%w: premium must not be negative", ErrInvalidConfig)
	case cfg.BidAskSpread.IsNegative():
		return OptionContract{}, fmt.Errorf("%w: bid/ask spread must not be negative", ErrInvalidConfig)
	case cfg.Volume < 0 || cfg.OpenInterest < 0:
		return OptionContract{}, fmt.Errorf("%w: volume and open interest must not be negative", ErrInvalidConfig)
	}

	createdAt := cfg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return OptionContract{
		Symbol:            symbol,
		Side:              cfg.Side,
		Strike:            cfg.Strike,
		Expiration:        cfg.Expiration,
		Premium:           cfg.Premium,
		Delta:             cfg.Delta,
		Theta:             cfg.Theta,
		Vega:              cfg.Vega,
		Gamma:             cfg.Gamma,
		ImpliedVolatility: cfg.ImpliedVolatility,
		BidAskSpread:      cfg.BidAskSpread,
		Volume:            cfg.Volume,
		OpenInterest:      cfg.OpenInterest,
		CreatedAt:         createdAt,
	}, nil
}

// DaysToExpiration is the ceiling of (expiration - asOf) in days.
// Zero or negative means no time value is left.
func (o OptionContract) DaysToExpiration(asOf time.Time) int {
	return daysCeil(asOf, o.Expiration)
}

// AnnualizedReturn is the premium yield on cashAtRisk scaled to a 365 day year:
// (premium*100/cashAtRisk) * 365 / daysToExpiration.
func (o OptionContract) AnnualizedReturn(cashAtRisk decimal.Decimal, asOf time.Time) (decimal.Decimal, error) {
	days := o.DaysToExpiration(asOf)
	if days == 0 {
		return decimal.Zero, fmt.Errorf("annualized return for %s: zero days to expiration: %w", o.Symbol, ErrDivisionByZero)
	}
	if cashAtRisk.IsZero() {
		return decimal.Zero, fmt.Errorf("annualized return for %s: zero cash at risk: %w", o.Symbol, ErrDivisionByZero)
	}

	yield := o.Premium.Mul(contractMultiplier).Div(cashAtRisk)
	return yield.Mul(daysPerYear).Div(decimal.NewFromInt(int64(days))), nil
}

// IsLiquid is true when the spread is at most 0.10 and more than 100 contracts traded.
func (o OptionContract) IsLiquid() bool {
	return o.BidAskSpread.LessThanOrEqual(liquidityMaxSpread) && o.Volume > liquidityMinVolume
}

// MaxLoss per share for the seller. A put loses at most strike - premium; a call needs
// the stock price and returns stockPrice - premium. A side other than PUT or CALL is
// rejected with ErrInvalidState rather than reported as a zero loss.
func (o OptionContract) MaxLoss(stockPrice decimal.NullDecimal) (decimal.Decimal, error) {
	switch o.Side {
	case OptionSidePut:
		return o.Strike.Sub(o.Premium), nil
	case OptionSideCall:
		if !stockPrice.Valid {
			return decimal.Zero, fmt.Errorf("max loss for call %s: stock price: %w", o.Symbol, ErrMissingInput)
		}
		return stockPrice.Decimal.Sub(o.Premium), nil
	default:
		return decimal.Zero, fmt.Errorf("max loss for %s: side %q: %w", o.Symbol, o.Side, ErrInvalidState)
	}
}

// Breakeven per share: strike - premium for a put, stockPrice + premium for a call.
// Any other side returns ErrInvalidState instead of zero.
func (o OptionContract) Breakeven(stockPrice decimal.NullDecimal) (decimal.Decimal, error) {
	switch o.Side {
	case OptionSidePut:
		return o.Strike.Sub(o.Premium), nil
	case OptionSideCall:
		if !stockPrice.Valid {
			return decimal.Zero, fmt.Errorf("breakeven for call %s: stock price: %w", o.Symbol, ErrMissingInput)
		}
		return stockPrice.Decimal.Add(o.Premium), nil
	default:
		return decimal.Zero, fmt.Errorf("breakeven for %s: side %q: %w", o.Symbol, o.Side, ErrInvalidState)
	}
}

// OCCSymbol builds the 21 character OCC option symbol, e.g. "AAPL  250321P00150000".
func OCCSymbol(underlying string, expiration time.Time, side OptionSide, strike decimal.Decimal) string {
	root := strings.ToUpper(strings.TrimSpace(underlying))
	right := "C"
	if side == OptionSidePut {
		right = "P"
	}
	strikeMills := strike.Mul(decimal.NewFromInt(1000)).Round(0).IntPart()
	return fmt.Sprintf("%-6s%s%s%08d", root, expiration.Format("060102"), right, strikeMills)
}
