package models

import (
	"time"
)

// MarketVote is a free-text opinion with no monetary stake. One row per user
// per market, updated in place on resubmission.
type MarketVote struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	MarketID   string  `gorm:"type:text;not null;uniqueIndex:idx_votes_market_user,priority:1"`
	UserID     string  `gorm:"type:text;not null;uniqueIndex:idx_votes_market_user,priority:2"`
	Outcome    string  `gorm:"type:varchar(10);not null"`
	Confidence *int    `gorm:"type:smallint"`
	Reasoning  *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (MarketVote) TableName() string {
	return "market_votes"
}
