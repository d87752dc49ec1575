package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable ledger row. Rows are only ever appended; volume and
// probability history are derived by replaying a market's trades in order.
type Trade struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:text;not null;index:idx_trades_market_created,priority:1"`
	UserID   string `gorm:"type:text;not null;index"`
	Outcome  string `gorm:"type:varchar(10);not null"`

	Shares decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	Cost   decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	Price  decimal.Decimal `gorm:"type:numeric(20,12);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index:idx_trades_market_created,priority:2"`
}

func (Trade) TableName() string {
	return "trades"
}
