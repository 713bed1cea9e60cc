package model

import "errors"

var (
	// ErrDivisionByZero is returned when a return calculation has a zero denominator
	// (zero days to expiration, zero cash required, zero days held, zero max profit).
	ErrDivisionByZero = errors.New("division by zero")

	// ErrMissingInput is returned when a call-side formula is evaluated without a stock price.
	ErrMissingInput = errors.New("missing input")

	// ErrInvalidState is returned for a status or strategy outside the known variants.
	ErrInvalidState = errors.New("invalid state")

	// ErrDataIntegrity is returned when a stored position contradicts its own status,
	// e.g. CLOSED without a closing price.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrInvalidTransition is returned when a terminal position receives another status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidConfig is returned by the constructors when a required field is missing or out of range.
	ErrInvalidConfig = errors.New("invalid config")
)
