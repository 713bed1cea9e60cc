package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"premiumdesk/src/market"
)

// Position is a sold-option trade. It is owned by a single writer; the type does no locking.
//
// Status moves one way: OPEN -> CLOSED | ASSIGNED | EXPIRED. Quantity and CashRequired
// are fixed at creation.
type Position struct {
	ID                string              `gorm:"primaryKey;size:36" json:"id"`
	Symbol            string              `gorm:"size:20;not null;index" json:"symbol"`
	Strategy          Strategy            `gorm:"size:30;not null" json:"strategy"`
	EntryDate         time.Time           `gorm:"not null" json:"entry_date"`
	ExpirationDate    time.Time           `gorm:"not null;index" json:"expiration_date"`
	Strike            decimal.Decimal     `gorm:"type:numeric(14,4);not null" json:"strike"`
	Premium           decimal.Decimal     `gorm:"type:numeric(14,4);not null" json:"premium"` // per share
	Quantity          int                 `gorm:"not null" json:"quantity"`
	Status            PositionStatus      `gorm:"size:20;not null;default:OPEN;index" json:"status"`
	StockPriceAtEntry decimal.Decimal     `gorm:"type:numeric(14,4);not null" json:"stock_price_at_entry"`
	AssignmentPrice   decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"assignment_price"`
	ClosingPrice      decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"closing_price"`
	CashRequired      decimal.Decimal     `gorm:"type:numeric(18,4);not null" json:"cash_required"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

// PositionConfig opens a position. ID is generated when empty.
type PositionConfig struct {
	ID                string
	Symbol            string
	Strategy          Strategy
	EntryDate         time.Time
	ExpirationDate    time.Time
	Strike            decimal.Decimal
	Premium           decimal.Decimal
	Quantity          int
	StockPriceAtEntry decimal.Decimal
	CashRequired      decimal.Decimal
}

// NewPosition validates cfg eagerly and returns an OPEN position. ExpirationDate is read as a
// calendar date and stored as that day's 16:00 New York close, in UTC.
func NewPosition(cfg PositionConfig) (*Position, error) {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	expiration := cfg.ExpirationDate
	if !expiration.IsZero() {
		expiration = market.ExpirationCutoff(expiration).UTC()
	}

	p := &Position{
		ID:                id,
		Symbol:            strings.ToUpper(strings.TrimSpace(cfg.Symbol)),
		Strategy:          cfg.Strategy,
		EntryDate:         cfg.EntryDate,
		ExpirationDate:    expiration,
		Strike:            cfg.Strike,
		Premium:           cfg.Premium,
		Quantity:          cfg.Quantity,
		Status:            PositionStatusOpen,
		StockPriceAtEntry: cfg.StockPriceAtEntry,
		CashRequired:      cfg.CashRequired,
		UpdatedAt:         cfg.EntryDate,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// DefaultCashRequired is the capital a strategy ties up: the strike for a cash-secured put,
// the shares bought at entry for a covered call.
func DefaultCashRequired(strategy Strategy, strike, stockPriceAtEntry decimal.Decimal, quantity int) (decimal.Decimal, error) {
	shares := decimal.NewFromInt(int64(quantity)).Mul(contractMultiplier)
	switch strategy {
	case StrategyCashSecuredPut:
		return strike.Mul(shares), nil
	case StrategyCoveredCall:
		return stockPriceAtEntry.Mul(shares), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, strategy)
	}
}

// Validate checks the fields a position must always carry.
func (p *Position) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: position id is required", ErrInvalidConfig)
	case p.Symbol == "":
		return fmt.Errorf("%w: position symbol is required", ErrInvalidConfig)
	case !p.Strategy.Valid():
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, p.Strategy)
	case !p.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidConfig, p.Status)
	case p.EntryDate.IsZero():
		return fmt.Errorf("%w: entry date is required", ErrInvalidConfig)
	case p.ExpirationDate.IsZero():
		return fmt.Errorf("%w: expiration date is required", ErrInvalidConfig)
	case p.ExpirationDate.Before(p.EntryDate):
		return fmt.Errorf("%w: expiration %s before entry %s", ErrInvalidConfig,
			p.ExpirationDate.Format(time.DateOnly), p.EntryDate.Format(time.DateOnly))
	case !p.Strike.IsPositive():
		return fmt.Errorf("%w: strike must be positive", ErrInvalidConfig)
	case p.Premium.IsNegative():
		return fmt.Errorf("%w: premium must not be negative", ErrInvalidConfig)
	case p.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidConfig, p.Quantity)
	case !p.StockPriceAtEntry.IsPositive():
		return fmt.Errorf("%w: stock price at entry must be positive", ErrInvalidConfig)
	case !p.CashRequired.IsPositive():
		return fmt.Errorf("%w: cash required must be positive", ErrInvalidConfig)
	}
	return nil
}

// OptionSymbol is the OCC symbol of the contract sold.
func (p *Position) OptionSymbol() (string, error) {
	side, err := p.Strategy.OptionSide()
	if err != nil {
		return "", fmt.Errorf("option symbol for position %s: %w", p.ID, err)
	}
	return OCCSymbol(p.Symbol, p.ExpirationDate, side, p.Strike), nil
}

// ----- P&L -----

func (p *Position) shares() decimal.Decimal {
	return decimal.NewFromInt(int64(p.Quantity)).Mul(contractMultiplier)
}

// MaxProfit is the full premium collected: premium * quantity * 100.
func (p *Position) MaxProfit() decimal.Decimal {
	return p.Premium.Mul(p.shares())
}

// UnrealizedPL is (premium - currentOptionPrice) * quantity * 100 while OPEN, zero otherwise.
// Positive when the option lost value.
func (p *Position) UnrealizedPL(currentOptionPrice decimal.Decimal) decimal.Decimal {
	if p.Status != PositionStatusOpen {
		return decimal.Zero
	}
	return p.Premium.Sub(currentOptionPrice).Mul(p.shares())
}

// RealizedPL depends on how the position ended. OPEN positions have realized nothing.
func (p *Position) RealizedPL() (decimal.Decimal, error) {
	switch p.Status {
	case PositionStatusOpen:
		return decimal.Zero, nil

	case PositionStatusExpired:
		return p.MaxProfit(), nil

	case PositionStatusClosed:
		if !p.ClosingPrice.Valid {
			return decimal.Zero, fmt.Errorf("position %s is CLOSED without closing price: %w", p.ID, ErrDataIntegrity)
		}
		return p.Premium.Sub(p.ClosingPrice.Decimal).Mul(p.shares()), nil

	case PositionStatusAssigned:
		switch p.Strategy {
		case StrategyCashSecuredPut:
			// stock cost basis is tracked outside the position
			return p.MaxProfit(), nil
		case StrategyCoveredCall:
			appreciation := p.Strike.Sub(p.StockPriceAtEntry).Mul(p.shares())
			return appreciation.Add(p.MaxProfit()), nil
		default:
			return decimal.Zero, fmt.Errorf("position %s assigned with strategy %q: %w", p.ID, p.Strategy, ErrInvalidState)
		}

	default:
		return decimal.Zero, fmt.Errorf("position %s has status %q: %w", p.ID, p.Status, ErrInvalidState)
	}
}

// ReturnOnCapital is realizedPL / cashRequired * 100.
func (p *Position) ReturnOnCapital() (decimal.Decimal, error) {
	if p.CashRequired.IsZero() {
		return decimal.Zero, fmt.Errorf("return on capital for position %s: zero cash required: %w", p.ID, ErrDivisionByZero)
	}
	realized, err := p.RealizedPL()
	if err != nil {
		return decimal.Zero, err
	}
	return realized.Div(p.CashRequired).Mul(hundred), nil
}

// DaysHeld is the ceiling of (UpdatedAt - EntryDate) in days.
func (p *Position) DaysHeld() int {
	return daysCeil(p.EntryDate, p.UpdatedAt)
}

// AnnualizedReturn scales ReturnOnCapital by 365 / DaysHeld. Same-day evaluation has no
// holding period and returns ErrDivisionByZero.
func (p *Position) AnnualizedReturn() (decimal.Decimal, error) {
	days := p.DaysHeld()
	if days == 0 {
		return decimal.Zero, fmt.Errorf("annualized return for position %s: zero days held: %w", p.ID, ErrDivisionByZero)
	}
	roc, err := p.ReturnOnCapital()
	if err != nil {
		return decimal.Zero, err
	}
	return roc.Mul(daysPerYear).Div(decimal.NewFromInt(int64(days))), nil
}

func (p *Position) DaysToExpiration(asOf time.Time) int {
	return daysCeil(asOf, p.ExpirationDate)
}

// ----- close rule -----

// ShouldClose applies the close heuristic as if the option were worth zero right now:
// profit% = unrealizedPL(0) / maxProfit * 100, and the rule fires when profit% reaches
// profitTargetPercent or when 7 or fewer days remain. Non-OPEN positions never fire.
func (p *Position) ShouldClose(profitTargetPercent decimal.Decimal, asOf time.Time) (bool, error) {
	reason, err := p.closeReason(decimal.Zero, profitTargetPercent, asOf)
	return reason != CloseReasonNone, err
}

// ShouldCloseAtMark is ShouldClose evaluated against the live option price instead of zero.
func (p *Position) ShouldCloseAtMark(currentOptionPrice, profitTargetPercent decimal.Decimal, asOf time.Time) (CloseReason, error) {
	return p.closeReason(currentOptionPrice, profitTargetPercent, asOf)
}

func (p *Position) closeReason(mark, profitTargetPercent decimal.Decimal, asOf time.Time) (CloseReason, error) {
	if p.Status != PositionStatusOpen {
		return CloseReasonNone, nil
	}

	maxProfit := p.MaxProfit()
	if maxProfit.IsZero() {
		return CloseReasonNone, fmt.Errorf("close check for position %s: zero max profit: %w", p.ID, ErrDivisionByZero)
	}

	profitPercent := p.UnrealizedPL(mark).Div(maxProfit).Mul(hundred)
	if profitPercent.GreaterThanOrEqual(profitTargetPercent) {
		return CloseReasonProfitTarget, nil
	}
	if p.DaysToExpiration(asOf) <= ShortDTEThreshold {
		return CloseReasonTime, nil
	}
	return CloseReasonNone, nil
}

// ----- transitions -----

// Close records a buy-to-close at closingPrice.
func (p *Position) Close(closingPrice decimal.Decimal, at time.Time) error {
	if closingPrice.IsNegative() {
		return fmt.Errorf("%w: closing price must not be negative", ErrInvalidConfig)
	}
	if err := p.transition(PositionStatusClosed, at); err != nil {
		return err
	}
	p.ClosingPrice = decimal.NewNullDecimal(closingPrice)
	return nil
}

// Assign records exercise against the position at assignmentPrice (normally the strike).
func (p *Position) Assign(assignmentPrice decimal.Decimal, at time.Time) error {
	if !assignmentPrice.IsPositive() {
		return fmt.Errorf("%w: assignment price must be positive", ErrInvalidConfig)
	}
	if err := p.transition(PositionStatusAssigned, at); err != nil {
		return err
	}
	p.AssignmentPrice = decimal.NewNullDecimal(assignmentPrice)
	return nil
}

// Expire records the option expiring worthless.
func (p *Position) Expire(at time.Time) error {
	return p.transition(PositionStatusExpired, at)
}

func (p *Position) transition(to PositionStatus, at time.Time) error {
	if p.Status != PositionStatusOpen {
		return fmt.Errorf("position %s: %s -> %s: %w", p.ID, p.Status, to, ErrInvalidTransition)
	}
	if at.Before(p.EntryDate) {
		return fmt.Errorf("position %s: %s at %s precedes entry: %w", p.ID, to, at.Format(time.RFC3339), ErrInvalidTransition)
	}
	p.Status = to
	p.UpdatedAt = at
	return nil
}
