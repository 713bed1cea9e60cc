package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"premiumdesk/src/database"
	"premiumdesk/src/model"
)

// PositionRepository handles persistence of option-income positions.
type PositionRepository struct {
	db *gorm.DB
}

// PositionSearchOptions filters Search. Nil pointers are ignored; Limit 0 means no limit.
type PositionSearchOptions struct {
	Symbol      *string
	Status      *model.PositionStatus
	Strategy    *model.Strategy
	EntryAfter  *time.Time
	EntryBefore *time.Time
	Limit       int
	Offset      int
}

// NewPositionRepository creates a new repository instance using the main read/write database.
func NewPositionRepository() *PositionRepository {
	logger.WithField("component", "PositionRepository").
		Info("Creating new PositionRepository with MainDB")

	return &PositionRepository{db: database.MainDB}
}

// NewPositionRepositoryWithDB allows overriding the underlying *gorm.DB instance.
func NewPositionRepositoryWithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create validates and inserts a new position.
func (r *PositionRepository) Create(ctx context.Context, p *model.Position) error {
	logger.WithFields(map[string]interface{}{
		"repo":     "PositionRepository",
		"op":       "Create",
		"symbol":   p.Symbol,
		"strategy": p.Strategy,
		"qty":      p.Quantity,
	}).Debug("Creating new position")

	if err := p.Validate(); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create position")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "PositionRepository",
		"op":          "Create",
		"position_id": p.ID,
	}).Info("Position created successfully")

	return nil
}

// FindByID fetches a single position. Returns (nil, nil) if not found.
func (r *PositionRepository) FindByID(ctx context.Context, id string) (*model.Position, error) {
	var p model.Position

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "PositionRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Position not found")
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch position by ID")
		return nil, err
	}

	return &p, nil
}

// Search lists positions newest entry first.
func (r *PositionRepository) Search(ctx context.Context, options PositionSearchOptions) ([]model.Position, error) {
	query := r.db.WithContext(ctx).Model(&model.Position{})

	if options.Symbol != nil {
		query = query.Where("symbol = ?", *options.Symbol)
	}
	if options.Status != nil {
		query = query.Where("status = ?", *options.Status)
	}
	if options.Strategy != nil {
		query = query.Where("strategy = ?", *options.Strategy)
	}
	if options.EntryAfter != nil {
		query = query.Where("entry_date >= ?", *options.EntryAfter)
	}
	if options.EntryBefore != nil {
		query = query.Where("entry_date <= ?", *options.EntryBefore)
	}

	query = query.Order("entry_date DESC, id DESC")

	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var positions []model.Position
	if err := query.Find(&positions).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search positions")
		return nil, err
	}

	return positions, nil
}

// ListOpen returns OPEN positions, nearest expiration first.
func (r *PositionRepository) ListOpen(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("status = ?", model.PositionStatusOpen).
		Order("expiration_date ASC, id ASC").
		Find(&positions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "ListOpen",
		}).WithError(err).Error("Failed to list open positions")
		return nil, err
	}

	return positions, nil
}

// ApplyTransition persists a status change made with Close, Assign or Expire.
// The row is only updated while it is still OPEN, so a concurrent writer that already
// moved the position to a terminal state wins and this call returns ErrInvalidTransition.
func (r *PositionRepository) ApplyTransition(ctx context.Context, p *model.Position) error {
	if !p.Status.Terminal() {
		return fmt.Errorf("position %s: persist status %s: %w", p.ID, p.Status, model.ErrInvalidTransition)
	}

	res := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", p.ID, model.PositionStatusOpen).
		Updates(map[string]interface{}{
			"status":           p.Status,
			"closing_price":    p.ClosingPrice,
			"assignment_price": p.AssignmentPrice,
			"updated_at":       p.UpdatedAt,
		})
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "ApplyTransition",
			"position_id": p.ID,
		}).WithError(res.Error).Error("Failed to persist position transition")
		return res.Error
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("position %s is no longer OPEN: %w", p.ID, model.ErrInvalidTransition)
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "PositionRepository",
		"op":          "ApplyTransition",
		"position_id": p.ID,
		"status":      p.Status,
	}).Info("Position transition persisted")

	return nil
}
