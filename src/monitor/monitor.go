package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/market"
	"premiumdesk/src/metrics"
	"premiumdesk/src/model"
)

type PositionStore interface {
	ListOpen(ctx context.Context) ([]model.Position, error)
	ApplyTransition(ctx context.Context, p *model.Position) error
}

type QuoteSource interface {
	GetOptionQuote(ctx context.Context, optionSymbol string) (model.OptionContract, error)
	GetUnderlying(ctx context.Context, symbol string) (model.Underlying, error)
}

type ExceptionStore interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Signal is a close recommendation raised for an open position.
type Signal struct {
	PositionID string
	Symbol     string
	Reason     model.CloseReason
	Mark       decimal.Decimal
	Unrealized decimal.Decimal
}

// Report summarizes one pass.
type Report struct {
	Open       int
	Valued     int
	Expired    int
	InTheMoney []string // expired but in the money, left OPEN for assignment
	Signals    []Signal
}

type Monitor struct {
	cfg        Config
	positions  PositionStore
	quotes     QuoteSource
	exceptions ExceptionStore
	metrics    *metrics.Registry
	now        func() time.Time
}

// New wires a monitor; exceptions and m may be nil.
func New(cfg Config, positions PositionStore, quotes QuoteSource, exceptions ExceptionStore, m *metrics.Registry) *Monitor {
	return &Monitor{
		cfg:        cfg,
		positions:  positions,
		quotes:     quotes,
		exceptions: exceptions,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start runs a pass on every LoopPeriod tick until ctx is cancelled. With MarketHoursOnly,
// ticks outside the regular session are skipped.
func (m *Monitor) Start(ctx context.Context) error {
	if m.cfg.LoopPeriod <= 0 {
		return fmt.Errorf("monitor loop period must be positive: %w", model.ErrInvalidConfig)
	}

	ticker := time.NewTicker(m.cfg.LoopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("monitor loop stopped")
			return nil

		case <-ticker.C:
			now := m.now()
			if m.cfg.MarketHoursOnly && !market.IsMarketOpen(now) {
				logger.WithField("session", market.SessionAt(now)).Debug("market closed, skipping monitor tick")
				continue
			}

			report, err := m.RunOnce(ctx, now)
			entry := logger.WithFields(logger.Fields{
				"open":    report.Open,
				"valued":  report.Valued,
				"expired": report.Expired,
				"signals": len(report.Signals),
			})
			if err != nil {
				entry.WithError(err).Error("monitor pass finished with errors")
				continue
			}
			entry.Info("monitor pass finished")
		}
	}
}

// RunOnce values every OPEN position as of asOf. Failures on one position are recorded and
// the pass continues; they are joined into the returned error.
func (m *Monitor) RunOnce(ctx context.Context, asOf time.Time) (Report, error) {
	started := time.Now()
	defer func() { m.metrics.ObserveMonitorPass(time.Since(started)) }()

	var report Report

	positions, err := m.positions.ListOpen(ctx)
	if err != nil {
		m.fail(ctx, "list", "ListOpen", err, nil)
		return report, err
	}

	var errs []error
	unrealized := map[string]decimal.Decimal{}
	stillOpen := 0

	for i := range positions {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		p := &positions[i]

		cutoff := market.ExpirationCutoff(p.ExpirationDate)
		if m.cfg.AutoExpire && !asOf.Before(cutoff) {
			expired, err := m.settleExpired(ctx, p, cutoff)
			switch {
			case err != nil:
				errs = append(errs, err)
			case expired:
				report.Expired++
				continue
			default:
				report.InTheMoney = append(report.InTheMoney, p.ID)
			}
		}
		stillOpen++

		signal, pl, err := m.valuate(ctx, p, asOf)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report.Valued++
		unrealized[p.Symbol] = unrealized[p.Symbol].Add(pl)
		if signal != nil {
			report.Signals = append(report.Signals, *signal)
		}
	}

	report.Open = stillOpen
	m.metrics.SetOpenPositions(stillOpen)
	m.metrics.ResetUnrealizedPL()
	for symbol, pl := range unrealized {
		m.metrics.SetUnrealizedPL(symbol, pl.InexactFloat64())
	}

	return report, errors.Join(errs...)
}

// settleExpired expires an out-of-the-money position at the expiration cutoff. An in-the-money
// position is left OPEN for an explicit Assign.
func (m *Monitor) settleExpired(ctx context.Context, p *model.Position, cutoff time.Time) (bool, error) {
	fields := map[string]interface{}{"position_id": p.ID, "symbol": p.Symbol}

	u, err := m.quotes.GetUnderlying(ctx, p.Symbol)
	if err != nil {
		m.fail(ctx, "underlying", "GetUnderlying", err, fields)
		return false, fmt.Errorf("position %s: %w", p.ID, err)
	}

	if inTheMoney(p, u.CurrentPrice) {
		logger.WithFields(logger.Fields{
			"position_id": p.ID,
			"symbol":      p.Symbol,
			"strike":      p.Strike.String(),
			"price":       u.CurrentPrice.String(),
		}).Warn("position expired in the money, awaiting assignment")
		return false, nil
	}

	if err := p.Expire(cutoff.UTC()); err != nil {
		m.fail(ctx, "expire", "Expire", err, fields)
		return false, err
	}
	if err := m.positions.ApplyTransition(ctx, p); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			// settled by another writer meanwhile
			return true, nil
		}
		m.fail(ctx, "expire", "ApplyTransition", err, fields)
		return false, err
	}

	m.metrics.IncTransition(string(model.PositionStatusExpired))
	logger.WithFields(logger.Fields{
		"position_id": p.ID,
		"symbol":      p.Symbol,
	}).Info("position expired worthless")
	return true, nil
}

func (m *Monitor) valuate(ctx context.Context, p *model.Position, asOf time.Time) (*Signal, decimal.Decimal, error) {
	fields := map[string]interface{}{"position_id": p.ID, "symbol": p.Symbol}

	var mark decimal.NullDecimal
	optionSymbol, err := p.OptionSymbol()
	if err != nil {
		m.fail(ctx, "valuation", "OptionSymbol", err, fields)
		return nil, decimal.Zero, err
	}

	quote, err := m.quotes.GetOptionQuote(ctx, optionSymbol)
	if err != nil {
		m.fail(ctx, "quote", "GetOptionQuote", err, fields)
	} else {
		mark = decimal.NewNullDecimal(quote.Premium)
	}

	v, err := p.Valuate(mark, m.cfg.ProfitTargetPct, asOf)
	if err != nil {
		m.fail(ctx, "valuation", "Valuate", err, fields)
		return nil, decimal.Zero, err
	}

	// without a live mark the close rule has nothing to compare against
	if !mark.Valid || !v.ShouldClose {
		return nil, v.UnrealizedPL, nil
	}

	m.metrics.IncCloseSignal(string(v.CloseReason))
	logger.WithFields(logger.Fields{
		"position_id":   p.ID,
		"symbol":        p.Symbol,
		"reason":        v.CloseReason,
		"mark":          mark.Decimal.String(),
		"unrealized_pl": v.UnrealizedPL.String(),
		"dte":           v.DaysToExpiration,
	}).Warn("close signal")

	return &Signal{
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Reason:     v.CloseReason,
		Mark:       mark.Decimal,
		Unrealized: v.UnrealizedPL,
	}, v.UnrealizedPL, nil
}

func inTheMoney(p *model.Position, price decimal.Decimal) bool {
	switch p.Strategy {
	case model.StrategyCashSecuredPut:
		return price.LessThan(p.Strike)
	case model.StrategyCoveredCall:
		return price.GreaterThan(p.Strike)
	default:
		return false
	}
}

func (m *Monitor) fail(ctx context.Context, stage, method string, err error, fields map[string]interface{}) {
	m.metrics.IncMonitorError(stage)
	logger.WithFields(fields).WithError(err).Errorf("monitor %s failed", stage)

	if m.exceptions == nil {
		return
	}
	if pErr := m.exceptions.Create(ctx, model.NewException("monitor", stage, method, err, fields)); pErr != nil {
		logger.WithError(pErr).Warn("failed to persist monitor exception")
	}
}
