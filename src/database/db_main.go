package database

import (
	"fmt"

	"premiumdesk/src/database/migrations"
	"premiumdesk/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MainDB is the primary read/write database connection used by the application.
var MainDB *gorm.DB

// Models is the write-side schema migrated on MainDB.
var Models = []interface{}{
	&model.Position{},
	&model.OptionsFlow{},
	&model.OptionsFlowAnalysis{},
	&model.PremiumFlowOpportunity{},
	&model.OptionsFlowAlert{},
	&model.Exception{},
	&migrations.DataMigration{},
}

// InitMainDB initializes the main (read/write) database connection and runs migrations.
// This should be called once at application startup (e.g. in main()).
func InitMainDB() error {
	config := GetConfig()

	db, err := Open(config, mainDSN(config))
	if err != nil {
		return fmt.Errorf("failed to connect to MainDB: %w", err)
	}

	// Assign to the global variable only after a successful connection.
	MainDB = db

	logrus.WithField("driver", config.Driver).Info("[database] MainDB connection established")

	return Migrate(MainDB)
}

// Migrate runs schema and data migrations on db.
func Migrate(db *gorm.DB) error {
	// Money columns stored as floating point by older deployments are converted
	// before AutoMigrate compares types.
	if err := migrations.PrepareMoneyColumns(db); err != nil {
		return fmt.Errorf("failed to prepare money columns: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run data migrations: %w", err)
	}

	logrus.Info("[database] migrations completed")

	return nil
}
