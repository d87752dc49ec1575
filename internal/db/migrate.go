package db

import (
	"factmarket/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Market{},
		&models.Trade{},
		&models.UserBalance{},
		&models.UserMarketStats{},
		&models.MarketVote{},
		&models.SeedAttempt{},
	)
}
