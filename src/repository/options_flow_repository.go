package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"premiumdesk/src/database"
	"premiumdesk/src/model"
)

// OptionsFlowRepository reads daily flow rows and maintains the per-symbol analysis.
type OptionsFlowRepository struct {
	db *gorm.DB
}

// NewOptionsFlowRepository uses FlowDB, which falls back to MainDB.
func NewOptionsFlowRepository() *OptionsFlowRepository {
	db := database.FlowDB
	if db == nil {
		db = database.MainDB
	}
	return &OptionsFlowRepository{db: db}
}

func NewOptionsFlowRepositoryWithDB(db *gorm.DB) *OptionsFlowRepository {
	return &OptionsFlowRepository{db: db}
}

// Upsert writes one (symbol, flow_date) row. net_premium_flow is recomputed by the model hook.
func (r *OptionsFlowRepository) Upsert(ctx context.Context, flow *model.OptionsFlow) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}, {Name: "flow_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"call_volume",
				"put_volume",
				"call_premium",
				"put_premium",
				"net_premium_flow",
				"put_call_ratio",
				"unusual_activity",
				"sentiment",
				"updated_at",
			}),
		}).
		Create(flow).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OptionsFlowRepository",
			"op":     "Upsert",
			"symbol": flow.Symbol,
		}).WithError(err).Error("Failed to upsert options flow")
		return err
	}
	return nil
}

// ListSince returns a symbol's rows with flow_date >= since, oldest first.
func (r *OptionsFlowRepository) ListSince(ctx context.Context, symbol string, since time.Time) ([]model.OptionsFlow, error) {
	var flows []model.OptionsFlow
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND flow_date >= ?", symbol, since).
		Order("flow_date ASC").
		Find(&flows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OptionsFlowRepository",
			"op":     "ListSince",
			"symbol": symbol,
		}).WithError(err).Error("Failed to list options flow")
		return nil, err
	}
	return flows, nil
}

// ListSymbolsSince returns the distinct symbols with flow on or after since.
func (r *OptionsFlowRepository) ListSymbolsSince(ctx context.Context, since time.Time) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).
		Model(&model.OptionsFlow{}).
		Distinct().
		Where("flow_date >= ?", since).
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OptionsFlowRepository",
			"op":   "ListSymbolsSince",
		}).WithError(err).Error("Failed to list flow symbols")
		return nil, err
	}
	return symbols, nil
}

// ListUnusualSince returns rows flagged as unusual activity on or after since.
func (r *OptionsFlowRepository) ListUnusualSince(ctx context.Context, since time.Time) ([]model.OptionsFlow, error) {
	var flows []model.OptionsFlow
	err := r.db.WithContext(ctx).
		Where("unusual_activity = ? AND flow_date >= ?", true, since).
		Order("flow_date ASC, symbol ASC").
		Find(&flows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OptionsFlowRepository",
			"op":   "ListUnusualSince",
		}).WithError(err).Error("Failed to list unusual options flow")
		return nil, err
	}
	return flows, nil
}

// UpsertAnalysis refreshes the aggregated columns of a symbol's analysis row. Upstream
// recommendation columns are only written when the row is first created.
func (r *OptionsFlowRepository) UpsertAnalysis(ctx context.Context, a *model.OptionsFlowAnalysis) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"net_flow_7d",
				"net_flow_30d",
				"put_call_ratio_30d",
				"sentiment",
				"last_updated",
			}),
		}).
		Create(a).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OptionsFlowRepository",
			"op":     "UpsertAnalysis",
			"symbol": a.Symbol,
		}).WithError(err).Error("Failed to upsert options flow analysis")
		return err
	}
	return nil
}

// FindAnalysis returns (nil, nil) when the symbol has no analysis row.
func (r *OptionsFlowRepository) FindAnalysis(ctx context.Context, symbol string) (*model.OptionsFlowAnalysis, error) {
	var a model.OptionsFlowAnalysis
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":   "OptionsFlowRepository",
			"op":     "FindAnalysis",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch options flow analysis")
		return nil, err
	}
	return &a, nil
}
