package migrations

import (
	"fmt"
	"time"

	"premiumdesk/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// backfillNetPremiumFlow recomputes net_premium_flow for rows written before the
// BeforeSave hook existed.
func backfillNetPremiumFlow(db *gorm.DB) error {
	res := db.Model(&model.OptionsFlow{}).
		Where("net_premium_flow <> call_premium - put_premium OR net_premium_flow IS NULL").
		Update("net_premium_flow", gorm.Expr("call_premium - put_premium"))
	if res.Error != nil {
		return fmt.Errorf("backfill net_premium_flow: %w", res.Error)
	}

	logrus.WithField("rows", res.RowsAffected).Info("[migrations] net_premium_flow backfilled")
	return nil
}

// backfillPositionUpdatedAt gives positions without an updated_at their entry date, so
// days-held is zero instead of negative.
func backfillPositionUpdatedAt(db *gorm.DB) error {
	epoch := time.Date(1971, time.January, 1, 0, 0, 0, 0, time.UTC)

	res := db.Model(&model.Position{}).
		Where("updated_at IS NULL OR updated_at < ?", epoch).
		Update("updated_at", gorm.Expr("entry_date"))
	if res.Error != nil {
		return fmt.Errorf("backfill positions.updated_at: %w", res.Error)
	}

	logrus.WithField("rows", res.RowsAffected).Info("[migrations] positions.updated_at backfilled")
	return nil
}
