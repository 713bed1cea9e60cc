package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/database"
	"premiumdesk/src/marketdata"
	"premiumdesk/src/metrics"
	"premiumdesk/src/monitor"
	"premiumdesk/src/repository"
	"premiumdesk/src/server"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	// Options flow tables, possibly on a separate database
	if err := database.InitFlowDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to flow database")
	}

	config := server.GetConfig()
	registry := metrics.NewRegistry()

	deps := server.Deps{
		Positions:     repository.NewPositionRepository(),
		Flow:          repository.NewOptionsFlowRepository(),
		Opportunities: repository.NewOpportunityRepository(),
		Alerts:        repository.NewAlertRepository(),
		Exceptions:    repository.NewExceptionRepository(),
		Metrics:       registry,
		ProfitTarget:  monitor.GetConfig().ProfitTargetPct,
		TokenHash:     config.APITokenHash,
	}

	mdConfig := marketdata.GetConfig()
	if mdConfig.APIKey != "" {
		quotes, err := marketdata.NewClient(mdConfig, registry)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create market data client")
		}
		deps.Quotes = quotes
	} else {
		logger.Warn("MARKETDATA_API_KEY not set, valuations use only explicit marks")
	}

	server.StartServer(config.Port, server.NewRouter(deps))
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
