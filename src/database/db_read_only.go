package database

import (
	"fmt"

	"premiumdesk/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FlowDB is the connection holding the options_flow tables. It points at MainDB unless
// DATABASE_URL_FLOW names a separate ingestion database.
var FlowDB *gorm.DB

// InitFlowDB initializes FlowDB. InitMainDB must run first.
// A separate flow database is not migrated: the ingestion process owns its schema.
func InitFlowDB() error {
	config := GetConfig()

	if config.DatabaseURLFlow == "" {
		FlowDB = MainDB
		logrus.Info("[FlowDB] using MainDB for options flow tables")
		return nil
	}

	db, err := Open(config, config.DatabaseURLFlow)
	if err != nil {
		return fmt.Errorf("failed to connect to FlowDB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from FlowDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping FlowDB: %w", err)
	}

	// Test if the table is really reachable
	var count int64
	if err := db.Model(&model.OptionsFlow{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to access options_flow: %w", err)
	}

	logrus.WithField("count", count).Info("[FlowDB] options_flow reachable")

	FlowDB = db

	return nil
}
