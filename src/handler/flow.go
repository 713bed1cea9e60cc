package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/model"
)

type opportunityLister interface {
	ListActive(ctx context.Context, asOf time.Time, limit int) ([]model.PremiumFlowOpportunity, error)
}

type analysisFinder interface {
	FindAnalysis(ctx context.Context, symbol string) (*model.OptionsFlowAnalysis, error)
}

type alertStore interface {
	ListUnread(ctx context.Context, limit int) ([]model.OptionsFlowAlert, error)
	MarkRead(ctx context.Context, id uint) (bool, error)
	Dismiss(ctx context.Context, id uint) (bool, error)
}

// ListOpportunitiesHandler returns live opportunities, best first. limit defaults to 20.
func ListOpportunitiesHandler(repo opportunityLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r, 20)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		out, err := repo.ListActive(r.Context(), time.Now().UTC(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list opportunities")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if out == nil {
			out = []model.PremiumFlowOpportunity{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func FlowAnalysisHandler(repo analysisFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

		a, err := repo.FindAnalysis(r.Context(), symbol)
		if err != nil {
			logger.WithError(err).WithField("symbol", symbol).Error("failed to load flow analysis")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if a == nil {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// ListAlertsHandler returns unread, undismissed alerts. limit defaults to 50.
func ListAlertsHandler(repo alertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r, 50)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		alerts, err := repo.ListUnread(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list alerts")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if alerts == nil {
			alerts = []model.OptionsFlowAlert{}
		}
		writeJSON(w, http.StatusOK, alerts)
	}
}

func MarkAlertReadHandler(repo alertStore) http.HandlerFunc {
	return alertFlagHandler(repo.MarkRead)
}

func DismissAlertHandler(repo alertStore) http.HandlerFunc {
	return alertFlagHandler(repo.Dismiss)
}

func alertFlagHandler(set func(ctx context.Context, id uint) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		found, err := set(r.Context(), uint(id))
		if err != nil {
			logger.WithError(err).WithField("alert_id", id).Error("failed to update alert")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func limitParam(r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 500 {
		return 0, false
	}
	return n, true
}
