package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/model"
)

type exceptionLister interface {
	ListRecent(ctx context.Context, limit int) ([]model.Exception, error)
}

// ListExceptionsHandler returns the failures persisted by the background loops, newest first.
func ListExceptionsHandler(repo exceptionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r, 50)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		out, err := repo.ListRecent(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list exceptions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if out == nil {
			out = []model.Exception{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
