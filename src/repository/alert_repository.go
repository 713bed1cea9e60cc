package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"premiumdesk/src/database"
	"premiumdesk/src/model"
)

// AlertRepository manages the options-flow alert log.
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository() *AlertRepository {
	db := database.FlowDB
	if db == nil {
		db = database.MainDB
	}
	return &AlertRepository{db: db}
}

func NewAlertRepositoryWithDB(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, a *model.OptionsFlowAlert) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "AlertRepository",
			"op":     "Create",
			"symbol": a.Symbol,
		}).WithError(err).Error("Failed to create alert")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "AlertRepository",
		"op":       "Create",
		"symbol":   a.Symbol,
		"type":     a.AlertType,
		"severity": a.Severity,
	}).Info("Options flow alert raised")
	return nil
}

// ExistsSince reports whether an alert of alertType was raised for symbol at or after since.
func (r *AlertRepository) ExistsSince(ctx context.Context, symbol, alertType string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.OptionsFlowAlert{}).
		Where("symbol = ? AND alert_type = ? AND created_at >= ?", symbol, alertType, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUnread returns alerts neither read nor dismissed, newest first.
func (r *AlertRepository) ListUnread(ctx context.Context, limit int) ([]model.OptionsFlowAlert, error) {
	query := r.db.WithContext(ctx).
		Where("is_read = ? AND is_dismissed = ?", false, false).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var alerts []model.OptionsFlowAlert
	if err := query.Find(&alerts).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "AlertRepository",
			"op":   "ListUnread",
		}).WithError(err).Error("Failed to list unread alerts")
		return nil, err
	}
	return alerts, nil
}

// MarkRead returns false when no alert has that id.
func (r *AlertRepository) MarkRead(ctx context.Context, id uint) (bool, error) {
	return r.setFlag(ctx, "MarkRead", id, "is_read")
}

// Dismiss returns false when no alert has that id.
func (r *AlertRepository) Dismiss(ctx context.Context, id uint) (bool, error) {
	return r.setFlag(ctx, "Dismiss", id, "is_dismissed")
}

func (r *AlertRepository) setFlag(ctx context.Context, op string, id uint, column string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.OptionsFlowAlert{}).
		Where("id = ?", id).
		Update(column, true)
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "AlertRepository",
			"op":       op,
			"alert_id": id,
		}).WithError(res.Error).Error("Failed to update alert")
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
