package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"premiumdesk/src/database"
	"premiumdesk/src/model"
)

// OpportunityRepository stores ranked premium-flow trade candidates.
type OpportunityRepository struct {
	db *gorm.DB
}

func NewOpportunityRepository() *OpportunityRepository {
	db := database.FlowDB
	if db == nil {
		db = database.MainDB
	}
	return &OpportunityRepository{db: db}
}

func NewOpportunityRepositoryWithDB(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

func (r *OpportunityRepository) Create(ctx context.Context, o *model.PremiumFlowOpportunity) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OpportunityRepository",
			"op":     "Create",
			"symbol": o.Symbol,
		}).WithError(err).Error("Failed to create opportunity")
		return err
	}
	return nil
}

// ListActive returns live opportunities ranked by score then confidence. limit <= 0 returns all.
func (r *OpportunityRepository) ListActive(ctx context.Context, asOf time.Time, limit int) ([]model.PremiumFlowOpportunity, error) {
	query := r.db.WithContext(ctx).
		Where("active = ? AND expires_at > ?", true, asOf).
		Order("opportunity_score DESC, confidence DESC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var out []model.PremiumFlowOpportunity
	if err := query.Find(&out).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OpportunityRepository",
			"op":   "ListActive",
		}).WithError(err).Error("Failed to list active opportunities")
		return nil, err
	}
	return out, nil
}

// DeactivateExpired flips active off for rows whose expires_at has passed and returns how many changed.
func (r *OpportunityRepository) DeactivateExpired(ctx context.Context, asOf time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.PremiumFlowOpportunity{}).
		Where("active = ? AND expires_at <= ?", true, asOf).
		Update("active", false)
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OpportunityRepository",
			"op":   "DeactivateExpired",
		}).WithError(res.Error).Error("Failed to deactivate expired opportunities")
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logger.WithFields(map[string]interface{}{
			"repo":  "OpportunityRepository",
			"op":    "DeactivateExpired",
			"count": res.RowsAffected,
		}).Info("Expired opportunities deactivated")
	}
	return res.RowsAffected, nil
}
