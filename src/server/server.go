package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/auth"
	"premiumdesk/src/handler"
	"premiumdesk/src/marketdata"
	"premiumdesk/src/metrics"
	"premiumdesk/src/repository"
)

// Deps are the collaborators served by the API. Quotes and Metrics may be nil.
type Deps struct {
	Positions     *repository.PositionRepository
	Flow          *repository.OptionsFlowRepository
	Opportunities *repository.OpportunityRepository
	Alerts        *repository.AlertRepository
	Exceptions    *repository.ExceptionRepository
	Quotes        *marketdata.Client
	Metrics       *metrics.Registry
	ProfitTarget  decimal.Decimal
	TokenHash     string
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.BearerMiddleware(deps.TokenHash))

		var quotes handler.OptionQuoter
		if deps.Quotes != nil {
			quotes = deps.Quotes
		}

		r.Route("/positions", func(r chi.Router) {
			r.Get("/", handler.SearchPositionsHandler(deps.Positions))
			r.Post("/", handler.CreatePositionHandler(deps.Positions))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handler.GetPositionHandler(deps.Positions))
				r.Get("/valuation", handler.PositionValuationHandler(deps.Positions, quotes, deps.ProfitTarget))
				r.Post("/close", handler.TransitionHandler(deps.Positions, handler.ActionClose))
				r.Post("/assign", handler.TransitionHandler(deps.Positions, handler.ActionAssign))
				r.Post("/expire", handler.TransitionHandler(deps.Positions, handler.ActionExpire))
			})
		})

		r.Get("/opportunities", handler.ListOpportunitiesHandler(deps.Opportunities))
		r.Get("/flow/{symbol}/analysis", handler.FlowAnalysisHandler(deps.Flow))

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", handler.ListAlertsHandler(deps.Alerts))
			r.Post("/{id}/read", handler.MarkAlertReadHandler(deps.Alerts))
			r.Post("/{id}/dismiss", handler.DismissAlertHandler(deps.Alerts))
		})

		r.Get("/exceptions", handler.ListExceptionsHandler(deps.Exceptions))
	})

	return r
}

// StartServer serves h until SIGINT or SIGTERM, then shuts down gracefully.
func StartServer(port string, h http.Handler) {
	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
