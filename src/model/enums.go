package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ContractMultiplier is the number of shares one equity option contract controls.
	ContractMultiplier = 100
	DaysPerYear        = 365
	// ShortDTEThreshold is the days-to-expiration at or below which an open position is flagged for closing.
	ShortDTEThreshold = 7
)

var (
	contractMultiplier = decimal.NewFromInt(ContractMultiplier)
	daysPerYear        = decimal.NewFromInt(DaysPerYear)
	hundred            = decimal.NewFromInt(100)
)

// ----- option side -----

type OptionSide string

const (
	OptionSidePut  OptionSide = "PUT"
	OptionSideCall OptionSide = "CALL"
)

func (s OptionSide) Valid() bool {
	return s == OptionSidePut || s == OptionSideCall
}

// ----- strategy -----

type Strategy string

const (
	StrategyCashSecuredPut Strategy = "CASH_SECURED_PUT"
	StrategyCoveredCall    Strategy = "COVERED_CALL"
)

func (s Strategy) Valid() bool {
	return s == StrategyCashSecuredPut || s == StrategyCoveredCall
}

// OptionSide returns the side of the contract sold by the strategy.
func (s Strategy) OptionSide() (OptionSide, error) {
	switch s {
	case StrategyCashSecuredPut:
		return OptionSidePut, nil
	case StrategyCoveredCall:
		return OptionSideCall, nil
	default:
		return "", ErrInvalidState
	}
}

// ----- position status -----

type PositionStatus string

const (
	PositionStatusOpen     PositionStatus = "OPEN"
	PositionStatusClosed   PositionStatus = "CLOSED"
	PositionStatusAssigned PositionStatus = "ASSIGNED"
	PositionStatusExpired  PositionStatus = "EXPIRED"
)

func (s PositionStatus) Valid() bool {
	switch s {
	case PositionStatusOpen, PositionStatusClosed, PositionStatusAssigned, PositionStatusExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further status change is allowed.
func (s PositionStatus) Terminal() bool {
	return s == PositionStatusClosed || s == PositionStatusAssigned || s == PositionStatusExpired
}

// ----- close signal -----

// CloseReason explains why a close signal fired.
type CloseReason string

const (
	CloseReasonNone         CloseReason = "none"
	CloseReasonProfitTarget CloseReason = "profit_target"
	CloseReasonTime         CloseReason = "time"
)

// daysCeil is the ceiling of (to - from) in days. Negative when to is before from.
func daysCeil(from, to time.Time) int {
	days := math.Ceil(to.Sub(from).Hours() / 24)
	if days == 0 {
		// avoid -0
		return 0
	}
	return int(days)
}
