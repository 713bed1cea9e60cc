package flowscan

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"premiumdesk/src/database"
	"premiumdesk/src/flow"
	"premiumdesk/src/metrics"
	"premiumdesk/src/repository"
)

// FlowScan runs the options-flow service against the flow tables.
type FlowScan struct {
	Once bool
}

func (f *FlowScan) Start() error {
	config := flow.GetConfig()
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

	if err := database.InitFlowDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to flow database")
		return err
	}

	svc := flow.NewService(
		config,
		repository.NewOptionsFlowRepository(),
		repository.NewAlertRepository(),
		repository.NewOpportunityRepository(),
		repository.NewExceptionRepository(),
		metrics.NewRegistry(),
	)

	if f.Once {
		report, err := svc.RunOnce(ctx, time.Now().UTC())
		logrus.WithFields(logrus.Fields{
			"symbols":     report.Symbols,
			"alerts":      report.Alerts,
			"deactivated": report.Deactivated,
		}).Info("flow pass finished")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"period":    config.LoopPeriod,
		"threshold": config.UnusualPremiumThreshold,
		"lookback":  config.AlertLookback,
	}).Info("Starting options flow service")

	return svc.Run(ctx)
}
