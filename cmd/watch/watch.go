package watch

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"premiumdesk/src/database"
	"premiumdesk/src/marketdata"
	"premiumdesk/src/metrics"
	"premiumdesk/src/monitor"
	"premiumdesk/src/repository"
)

// Watcher runs the position monitor as a standalone process.
type Watcher struct {
	Once        bool   // single pass, then exit
	MetricsAddr string // serves /metrics when set
}

func (w *Watcher) Start() error {
	config := monitor.GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	registry := metrics.NewRegistry()
	quotes, err := marketdata.NewClient(marketdata.GetConfig(), registry)
	if err != nil {
		logrus.WithError(err).Error("Failed to create market data client")
		return err
	}

	m := monitor.New(
		config,
		repository.NewPositionRepository(),
		quotes,
		repository.NewExceptionRepository(),
		registry,
	)

	if w.Once {
		report, err := m.RunOnce(ctx, time.Now().UTC())
		for _, s := range report.Signals {
			logrus.WithFields(logrus.Fields{
				"position_id": s.PositionID,
				"symbol":      s.Symbol,
				"reason":      s.Reason,
				"mark":        s.Mark,
				"unrealized":  s.Unrealized,
			}).Info("close signal")
		}
		return err
	}

	if w.MetricsAddr != "" {
		srv := &http.Server{Addr: w.MetricsAddr, Handler: registry.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("metrics listener stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logrus.WithFields(logrus.Fields{
		"period":            config.LoopPeriod,
		"profit_target_pct": config.ProfitTargetPct,
		"market_hours_only": config.MarketHoursOnly,
	}).Info("Starting position monitor")

	if err := m.Start(ctx); err != nil {
		logrus.WithError(err).Error("Failed to start monitor loop")
		return err
	}

	return nil
}
