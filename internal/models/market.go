package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market status values. Transitions are one-way: open markets may become
// resolved or cancelled, terminal states never reopen.
const (
	MarketStatusOpen      = "open"
	MarketStatusResolved  = "resolved"
	MarketStatusCancelled = "cancelled"
)

// Trade outcome values.
const (
	OutcomeYes = "yes"
	OutcomeNo  = "no"
)

// SystemUserID is the reserved account used for seeded trades. Trades under
// this ID carry house liquidity and are excluded from user stats.
const SystemUserID = "system"

type Market struct {
	ID                 string          `gorm:"primaryKey;type:text"`
	Slug               *string         `gorm:"type:text;uniqueIndex"`
	Question           string          `gorm:"type:text;not null"`
	Description        *string         `gorm:"type:text"`
	ResolutionCriteria *string         `gorm:"type:text"`
	Category           *string         `gorm:"type:varchar(50);index"`
	PoolYes            decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	PoolNo             decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	// Seed pools are the pool values at creation; history reconstruction
	// replays the ledger starting from them.
	SeedPoolYes      decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	SeedPoolNo       decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	Status           string          `gorm:"type:varchar(20);not null;index;default:open"`
	WinningOutcome   *string         `gorm:"type:varchar(10)"`
	ResolutionSource *string         `gorm:"type:text"`
	ClaimID          *string         `gorm:"type:text;index"`
	CreatorID        *string         `gorm:"type:text;index"`
	ClosesAt         *time.Time      `gorm:"type:timestamptz"`
	ResolvedAt       *time.Time      `gorm:"type:timestamptz"`
	CreatedAt        time.Time       `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt        time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Market) TableName() string {
	return "markets"
}

func (m *Market) IsOpen() bool {
	return m != nil && m.Status == MarketStatusOpen
}
