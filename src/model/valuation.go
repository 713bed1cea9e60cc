package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Valuation is a point-in-time read of a position's metrics.
type Valuation struct {
	PositionID       string              `json:"position_id"`
	Symbol           string              `json:"symbol"`
	Strategy         Strategy            `json:"strategy"`
	Status           PositionStatus      `json:"status"`
	AsOf             time.Time           `json:"as_of"`
	Mark             decimal.NullDecimal `json:"mark"`
	DaysToExpiration int                 `json:"days_to_expiration"`
	DaysHeld         int                 `json:"days_held"`
	MaxProfit        decimal.Decimal     `json:"max_profit"`
	UnrealizedPL     decimal.Decimal     `json:"unrealized_pl"`
	RealizedPL       decimal.Decimal     `json:"realized_pl"`
	ReturnOnCapital  decimal.Decimal     `json:"return_on_capital"`
	AnnualizedReturn decimal.NullDecimal `json:"annualized_return"` // null when held less than a day
	ShouldClose      bool                `json:"should_close"`
	CloseReason      CloseReason         `json:"close_reason"`
}

// Valuate computes every metric in one pass. Without a mark, unrealized P&L is zero and the
// close rule runs in its "worth zero" form.
func (p *Position) Valuate(mark decimal.NullDecimal, profitTargetPercent decimal.Decimal, asOf time.Time) (*Valuation, error) {
	realized, err := p.RealizedPL()
	if err != nil {
		return nil, err
	}
	roc, err := p.ReturnOnCapital()
	if err != nil {
		return nil, err
	}

	v := &Valuation{
		PositionID:       p.ID,
		Symbol:           p.Symbol,
		Strategy:         p.Strategy,
		Status:           p.Status,
		AsOf:             asOf,
		Mark:             mark,
		DaysToExpiration: p.DaysToExpiration(asOf),
		DaysHeld:         p.DaysHeld(),
		MaxProfit:        p.MaxProfit(),
		UnrealizedPL:     decimal.Zero,
		RealizedPL:       realized,
		ReturnOnCapital:  roc,
		CloseReason:      CloseReasonNone,
	}

	annualized, err := p.AnnualizedReturn()
	switch {
	case err == nil:
		v.AnnualizedReturn = decimal.NewNullDecimal(annualized)
	case !errors.Is(err, ErrDivisionByZero):
		return nil, err
	}

	closeMark := decimal.Zero
	if mark.Valid {
		v.UnrealizedPL = p.UnrealizedPL(mark.Decimal)
		closeMark = mark.Decimal
	}

	reason, err := p.closeReason(closeMark, profitTargetPercent, asOf)
	if err != nil && !errors.Is(err, ErrDivisionByZero) {
		return nil, err
	}
	v.CloseReason = reason
	v.ShouldClose = reason != CloseReasonNone

	return v, nil
}
