package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"premiumdesk/src/database"
	"premiumdesk/src/model"
)

// ExceptionRepository stores failures raised by the monitor and flow loops.
type ExceptionRepository struct {
	db *gorm.DB
}

func NewExceptionRepository() *ExceptionRepository {
	return &ExceptionRepository{db: database.MainDB}
}

func NewExceptionRepositoryWithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create persists exc. Failing to persist is logged and returned; the caller decides whether it matters.
func (r *ExceptionRepository) Create(ctx context.Context, exc *model.Exception) error {
	fields := map[string]interface{}{
		"repo":    "ExceptionRepository",
		"op":      "Create",
		"service": exc.Service,
		"module":  exc.Module,
		"method":  exc.Method,
	}
	logger.WithFields(fields).Debug("Persisting exception")

	if err := r.db.WithContext(ctx).Create(exc).Error; err != nil {
		logger.WithFields(fields).WithError(err).Error("Failed to persist exception")
		return err
	}
	return nil
}

// ListRecent returns the newest exceptions first. limit <= 0 means no limit.
func (r *ExceptionRepository) ListRecent(ctx context.Context, limit int) ([]model.Exception, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var out []model.Exception
	if err := query.Find(&out).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ExceptionRepository",
			"op":   "ListRecent",
		}).WithError(err).Error("Failed to list exceptions")
		return nil, err
	}
	return out, nil
}
