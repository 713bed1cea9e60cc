package migrations

import (
	"database/sql"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// moneyColumns lists position columns that must be exact decimals.
var moneyColumns = map[string]string{
	"strike":               "numeric(14,4)",
	"premium":              "numeric(14,4)",
	"stock_price_at_entry": "numeric(14,4)",
	"assignment_price":     "numeric(14,4)",
	"closing_price":        "numeric(14,4)",
	"cash_required":        "numeric(18,4)",
}

// PrepareMoneyColumns converts position money columns that older schemas stored as
// floating point into numeric, so P&L arithmetic is exact. Postgres only.
func PrepareMoneyColumns(db *gorm.DB) error {
	if db == nil || db.Dialector.Name() != "postgres" {
		return nil
	}
	if !db.Migrator().HasTable("positions") {
		return nil
	}

	for column, target := range moneyColumns {
		columnType, exists, err := lookupColumnType(db, "positions", column)
		if err != nil {
			return fmt.Errorf("inspect positions.%s: %w", column, err)
		}
		if !exists || !isFloaty(columnType) {
			continue
		}

		stmt := fmt.Sprintf("ALTER TABLE positions ALTER COLUMN %s TYPE %s USING %s::numeric", column, target, column)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("convert positions.%s to %s: %w", column, target, err)
		}
	}

	return nil
}

func lookupColumnType(db *gorm.DB, table, column string) (dataType string, exists bool, err error) {
	row := db.Raw(
		`SELECT data_type FROM information_schema.columns WHERE table_name = ? AND column_name = ?`,
		table,
		column,
	).Row()

	if scanErr := row.Scan(&dataType); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, scanErr
	}

	return dataType, true, nil
}

func isFloaty(dataType string) bool {
	dataType = strings.ToLower(dataType)
	return dataType == "double precision" || dataType == "real"
}
