package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/metrics"
	"premiumdesk/src/model"
	"premiumdesk/src/utils"
)

type FlowStore interface {
	ListSymbolsSince(ctx context.Context, since time.Time) ([]string, error)
	ListSince(ctx context.Context, symbol string, since time.Time) ([]model.OptionsFlow, error)
	ListUnusualSince(ctx context.Context, since time.Time) ([]model.OptionsFlow, error)
	UpsertAnalysis(ctx context.Context, a *model.OptionsFlowAnalysis) error
}

type AlertStore interface {
	ExistsSince(ctx context.Context, symbol, alertType string, since time.Time) (bool, error)
	Create(ctx context.Context, a *model.OptionsFlowAlert) error
}

type OpportunityStore interface {
	DeactivateExpired(ctx context.Context, asOf time.Time) (int64, error)
}

type ExceptionStore interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Report counts what a single pass did.
type Report struct {
	Symbols     int
	Alerts      int
	Deactivated int64
}

// Service refreshes flow analyses, raises unusual-premium alerts and retires stale opportunities.
type Service struct {
	cfg           Config
	flows         FlowStore
	alerts        AlertStore
	opportunities OpportunityStore
	exceptions    ExceptionStore
	metrics       *metrics.Registry
	now           func() time.Time
}

// NewService wires the stores; exceptions and m may be nil.
func NewService(cfg Config, flows FlowStore, alerts AlertStore, opportunities OpportunityStore, exceptions ExceptionStore, m *metrics.Registry) *Service {
	return &Service{
		cfg:           cfg,
		flows:         flows,
		alerts:        alerts,
		opportunities: opportunities,
		exceptions:    exceptions,
		metrics:       m,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Run executes a pass immediately and then on every LoopPeriod tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.LoopPeriod <= 0 {
		return fmt.Errorf("flow loop period must be positive: %w", model.ErrInvalidConfig)
	}

	ticker := time.NewTicker(s.cfg.LoopPeriod)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("flow loop stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	report, err := s.RunOnce(ctx, s.now())
	entry := logger.WithFields(logger.Fields{
		"service":     "flow",
		"symbols":     report.Symbols,
		"alerts":      report.Alerts,
		"deactivated": report.Deactivated,
	})
	if err != nil {
		entry.WithError(err).Error("flow pass finished with errors")
		return
	}
	entry.Info("flow pass finished")
}

// RunOnce performs one pass as of asOf. A failing symbol does not stop the others; all
// failures are joined into the returned error.
func (s *Service) RunOnce(ctx context.Context, asOf time.Time) (Report, error) {
	var report Report
	var errs []error

	n, err := s.refreshAnalyses(ctx, asOf, &errs)
	report.Symbols = n
	if err != nil {
		errs = append(errs, err)
	}

	raised, err := s.raiseAlerts(ctx, asOf, &errs)
	report.Alerts = raised
	if err != nil {
		errs = append(errs, err)
	}

	deactivated, err := s.opportunities.DeactivateExpired(ctx, asOf)
	if err != nil {
		s.recordException(ctx, "DeactivateExpired", err, nil)
		errs = append(errs, err)
	}
	report.Deactivated = deactivated

	return report, errors.Join(errs...)
}

func (s *Service) refreshAnalyses(ctx context.Context, asOf time.Time, errs *[]error) (int, error) {
	since := utils.DayWindowStart(asOf, LongWindowDays)

	symbols, err := s.flows.ListSymbolsSince(ctx, since)
	if err != nil {
		s.recordException(ctx, "ListSymbolsSince", err, nil)
		return 0, err
	}

	done := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}

		rows, err := s.flows.ListSince(ctx, symbol, since)
		if err != nil {
			s.recordException(ctx, "ListSince", err, map[string]interface{}{"symbol": symbol})
			*errs = append(*errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}

		summary := Aggregate(symbol, rows, asOf)
		if err := s.flows.UpsertAnalysis(ctx, summary.Analysis()); err != nil {
			s.recordException(ctx, "UpsertAnalysis", err, map[string]interface{}{"symbol": symbol})
			*errs = append(*errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}

		logger.WithFields(logger.Fields{
			"symbol":    symbol,
			"net_7d":    summary.NetFlow7d.String(),
			"net_30d":   summary.NetFlow30d.String(),
			"sentiment": summary.Sentiment,
			"flow_days": summary.Days,
		}).Debug("flow analysis refreshed")
		done++
	}
	return done, nil
}

func (s *Service) raiseAlerts(ctx context.Context, asOf time.Time, errs *[]error) (int, error) {
	rows, err := s.flows.ListUnusualSince(ctx, asOf.Add(-s.cfg.AlertLookback))
	if err != nil {
		s.recordException(ctx, "ListUnusualSince", err, nil)
		return 0, err
	}

	raised := 0
	for _, row := range rows {
		alert, err := BuildAlert(row, s.cfg.UnusualPremiumThreshold, asOf)
		if err != nil {
			s.recordException(ctx, "BuildAlert", err, map[string]interface{}{"symbol": row.Symbol})
			*errs = append(*errs, err)
			continue
		}
		if alert == nil {
			continue
		}

		exists, err := s.alerts.ExistsSince(ctx, row.Symbol, alert.AlertType, row.FlowDate)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", row.Symbol, err))
			continue
		}
		if exists {
			continue
		}

		if err := s.alerts.Create(ctx, alert); err != nil {
			s.recordException(ctx, "CreateAlert", err, map[string]interface{}{"symbol": row.Symbol})
			*errs = append(*errs, fmt.Errorf("%s: %w", row.Symbol, err))
			continue
		}
		s.metrics.IncFlowAlert(string(alert.Severity))
		raised++
	}
	return raised, nil
}

func (s *Service) recordException(ctx context.Context, method string, err error, fields map[string]interface{}) {
	if s.exceptions == nil {
		return
	}
	exc := model.NewException("flow", "service", method, err, fields)
	if pErr := s.exceptions.Create(ctx, exc); pErr != nil {
		logger.WithError(pErr).Warn("failed to persist flow exception")
	}
}
