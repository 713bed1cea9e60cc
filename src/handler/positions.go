package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/auth"
	"premiumdesk/src/model"
	"premiumdesk/src/repository"
)

type positionStore interface {
	Create(ctx context.Context, p *model.Position) error
	FindByID(ctx context.Context, id string) (*model.Position, error)
	Search(ctx context.Context, options repository.PositionSearchOptions) ([]model.Position, error)
	ApplyTransition(ctx context.Context, p *model.Position) error
}

// OptionQuoter supplies live marks for valuation.
type OptionQuoter interface {
	GetOptionQuote(ctx context.Context, optionSymbol string) (model.OptionContract, error)
}

type createPositionRequest struct {
	Symbol            string           `json:"symbol"`
	Strategy          model.Strategy   `json:"strategy"`
	EntryDate         time.Time        `json:"entry_date"`
	ExpirationDate    time.Time        `json:"expiration_date"`
	Strike            decimal.Decimal  `json:"strike"`
	Premium           decimal.Decimal  `json:"premium"`
	Quantity          int              `json:"quantity"`
	StockPriceAtEntry decimal.Decimal  `json:"stock_price_at_entry"`
	CashRequired      *decimal.Decimal `json:"cash_required,omitempty"`
}

type transitionRequest struct {
	Price *decimal.Decimal `json:"price,omitempty"`
	At    *time.Time       `json:"at,omitempty"`
}

// SearchPositionsHandler lists positions. Filters: symbol, status, strategy, entryFrom, entryTo
// (RFC3339), page, pageSize.
func SearchPositionsHandler(repo positionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var options repository.PositionSearchOptions

		if symbol := q.Get("symbol"); symbol != "" {
			upper := strings.ToUpper(symbol)
			options.Symbol = &upper
		}
		if status := q.Get("status"); status != "" {
			s := model.PositionStatus(strings.ToUpper(status))
			if !s.Valid() {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			options.Status = &s
		}
		if strategy := q.Get("strategy"); strategy != "" {
			s := model.Strategy(strings.ToUpper(strategy))
			if !s.Valid() {
				http.Error(w, "invalid strategy", http.StatusBadRequest)
				return
			}
			options.Strategy = &s
		}
		if from := q.Get("entryFrom"); from != "" {
			parsed, err := time.Parse(time.RFC3339, from)
			if err != nil {
				http.Error(w, "invalid entryFrom", http.StatusBadRequest)
				return
			}
			options.EntryAfter = &parsed
		}
		if to := q.Get("entryTo"); to != "" {
			parsed, err := time.Parse(time.RFC3339, to)
			if err != nil {
				http.Error(w, "invalid entryTo", http.StatusBadRequest)
				return
			}
			options.EntryBefore = &parsed
		}

		limit, offset, ok := pagination(r)
		if !ok {
			http.Error(w, "invalid pagination", http.StatusBadRequest)
			return
		}
		options.Limit = limit
		options.Offset = offset

		positions, err := repo.Search(r.Context(), options)
		if err != nil {
			logger.WithError(err).Error("failed to search positions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if positions == nil {
			positions = []model.Position{}
		}
		writeJSON(w, http.StatusOK, positions)
	}
}

// CreatePositionHandler opens a position. cash_required defaults from the strategy when omitted.
func CreatePositionHandler(repo positionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		var cash decimal.Decimal
		if req.CashRequired != nil {
			cash = *req.CashRequired
		} else {
			var err error
			cash, err = model.DefaultCashRequired(req.Strategy, req.Strike, req.StockPriceAtEntry, req.Quantity)
			if err != nil {
				writeError(w, err)
				return
			}
		}

		p, err := model.NewPosition(model.PositionConfig{
			Symbol:            req.Symbol,
			Strategy:          req.Strategy,
			EntryDate:         req.EntryDate,
			ExpirationDate:    req.ExpirationDate,
			Strike:            req.Strike,
			Premium:           req.Premium,
			Quantity:          req.Quantity,
			StockPriceAtEntry: req.StockPriceAtEntry,
			CashRequired:      cash,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		if err := repo.Create(r.Context(), p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func GetPositionHandler(repo positionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadPosition(w, r, repo)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// PositionValuationHandler values a position. asOf (RFC3339) defaults to now, target to
// defaultTarget. Without a mark query parameter the live quote is used when quotes is set.
func PositionValuationHandler(repo positionStore, quotes OptionQuoter, defaultTarget decimal.Decimal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadPosition(w, r, repo)
		if !ok {
			return
		}
		q := r.URL.Query()

		asOf := time.Now().UTC()
		if v := q.Get("asOf"); v != "" {
			parsed, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "invalid asOf", http.StatusBadRequest)
				return
			}
			asOf = parsed
		}

		target := defaultTarget
		if v := q.Get("target"); v != "" {
			parsed, err := decimal.NewFromString(v)
			if err != nil {
				http.Error(w, "invalid target", http.StatusBadRequest)
				return
			}
			target = parsed
		}

		var mark decimal.NullDecimal
		if v := q.Get("mark"); v != "" {
			parsed, err := decimal.NewFromString(v)
			if err != nil || parsed.IsNegative() {
				http.Error(w, "invalid mark", http.StatusBadRequest)
				return
			}
			mark = decimal.NewNullDecimal(parsed)
		} else if quotes != nil && p.Status == model.PositionStatusOpen {
			mark = liveMark(r.Context(), quotes, p)
		}

		v, err := p.Valuate(mark, target, asOf)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func liveMark(ctx context.Context, quotes OptionQuoter, p *model.Position) decimal.NullDecimal {
	symbol, err := p.OptionSymbol()
	if err != nil {
		return decimal.NullDecimal{}
	}
	quote, err := quotes.GetOptionQuote(ctx, symbol)
	if err != nil {
		logger.WithField("position_id", p.ID).WithError(err).Warn("live mark unavailable, valuing without it")
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(quote.Premium)
}

// Transition actions accepted by TransitionHandler.
const (
	ActionClose  = "close"
	ActionAssign = "assign"
	ActionExpire = "expire"
)

// TransitionHandler applies close (price required), assign (price required) or expire.
// "at" defaults to now.
func TransitionHandler(repo positionStore, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transitionRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
		}

		p, ok := loadPosition(w, r, repo)
		if !ok {
			return
		}

		at := time.Now().UTC()
		if req.At != nil {
			at = *req.At
		}

		var err error
		switch action {
		case ActionClose, ActionAssign:
			if req.Price == nil || req.Price.IsNegative() {
				http.Error(w, "price is required", http.StatusBadRequest)
				return
			}
			if action == ActionClose {
				err = p.Close(*req.Price, at)
			} else {
				err = p.Assign(*req.Price, at)
			}
		case ActionExpire:
			err = p.Expire(at)
		default:
			http.Error(w, "unknown action", http.StatusNotFound)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}

		if err := repo.ApplyTransition(r.Context(), p); err != nil {
			writeError(w, err)
			return
		}

		entry := logger.WithFields(logger.Fields{
			"position_id": p.ID,
			"action":      action,
			"status":      p.Status,
		})
		if principal, ok := auth.GetPrincipalFromContext(r.Context()); ok {
			entry = entry.WithField("by", principal.Name)
		}
		entry.Info("position transitioned")
		writeJSON(w, http.StatusOK, p)
	}
}

func loadPosition(w http.ResponseWriter, r *http.Request, repo positionStore) (*model.Position, bool) {
	id := chi.URLParam(r, "id")
	p, err := repo.FindByID(r.Context(), id)
	if err != nil {
		logger.WithError(err).WithField("position_id", id).Error("failed to load position")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if p == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, false
	}
	return p, true
}
