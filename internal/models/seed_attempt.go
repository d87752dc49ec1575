package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Seed attempt kinds and statuses.
const (
	SeedKindInitial  = "seed"
	SeedKindReassess = "reassess"

	SeedStatusExecuted = "executed"
	SeedStatusSkipped  = "skipped"
	SeedStatusFailed   = "failed"
)

// SeedAttempt is an audit row written for every seeding decision, including
// skips, so operators can see why a market was or was not moved.
type SeedAttempt struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement"`
	MarketID string  `gorm:"type:text;not null;index"`
	Kind     string  `gorm:"type:varchar(20);not null"`
	Status   string  `gorm:"type:varchar(20);not null;index"`
	Reason   *string `gorm:"type:varchar(50)"`

	Outcome        *string          `gorm:"type:varchar(10)"`
	Amount         *decimal.Decimal `gorm:"type:numeric(30,12)"`
	Shares         *decimal.Decimal `gorm:"type:numeric(30,12)"`
	YesProbability *decimal.Decimal `gorm:"type:numeric(10,6)"`
	Confidence     *decimal.Decimal `gorm:"type:numeric(10,6)"`
	RawAssessment  datatypes.JSON   `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (SeedAttempt) TableName() string {
	return "seed_attempts"
}
