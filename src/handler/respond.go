package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/model"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, model.ErrDivisionByZero), errors.Is(err, model.ErrMissingInput), errors.Is(err, model.ErrInvalidState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrDataIntegrity):
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
		http.Error(w, "Internal Server Error", status)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// pagination reads page/pageSize (defaults 1 and 20) into limit and offset.
func pagination(r *http.Request) (limit, offset int, ok bool) {
	page := 1
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		parsedPage, err := strconv.Atoi(pageParam)
		if err != nil || parsedPage <= 0 {
			return 0, 0, false
		}
		page = parsedPage
	}

	pageSize := 20
	if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
		parsedSize, err := strconv.Atoi(sizeParam)
		if err != nil || parsedSize <= 0 || parsedSize > 500 {
			return 0, 0, false
		}
		pageSize = parsedSize
	}

	return pageSize, (page - 1) * pageSize, true
}
