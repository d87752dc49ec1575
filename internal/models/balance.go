package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserBalance struct {
	UserID           string          `gorm:"primaryKey;type:text"`
	AvailableCredits decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	LockedCredits    decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	CreatedAt        time.Time       `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (UserBalance) TableName() string {
	return "user_balances"
}
