// Package migrations holds data migrations that go beyond gorm AutoMigrate.
package migrations

import (
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration is one applied row of the data_migrations ledger.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

// Step is a named data migration. IDs are stable and sort in application order.
type Step struct {
	ID string
	Fn func(*gorm.DB) error
}

// Steps is the ordered list applied by Run. Append only.
var Steps = []Step{
	{ID: "00001_backfill_net_premium_flow", Fn: backfillNetPremiumFlow},
	{ID: "00002_backfill_position_updated_at", Fn: backfillPositionUpdatedAt},
}

// RunOnce applies fn inside a transaction unless migrationID is already in the ledger.
// The ledger row is written in the same transaction, so a failed fn leaves no trace.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	switch {
	case db == nil:
		return nil
	case migrationID == "":
		return errors.New("migration id is empty")
	case fn == nil:
		return fmt.Errorf("migration %q has nil fn", migrationID)
	}

	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return fmt.Errorf("ensure data migrations table: %w", err)
	}

	applied := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&DataMigration{}).Where("id = ?", migrationID).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}
		if count > 0 {
			return nil
		}

		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}
		if err := tx.Create(&DataMigration{ID: migrationID, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}

	if applied {
		logger.WithField("migration", migrationID).Info("[migrations] data migration applied")
	}
	return nil
}

// Run applies every pending step in order and stops at the first failure.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	for _, step := range Steps {
		if err := RunOnce(db, step.ID, step.Fn); err != nil {
			return err
		}
	}
	return nil
}

// Applied lists the ledger IDs in application order.
func Applied(db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.Model(&DataMigration{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}
