package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserMarketStats is the per-user trading aggregate. Trade count and volume
// are bumped at trade time; win/loss counts, accuracy and earnings are written
// only by the resolution path.
type UserMarketStats struct {
	UserID        string          `gorm:"primaryKey;type:text"`
	TotalTrades   int64           `gorm:"not null;default:0"`
	TotalVolume   decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	WinningTrades int64           `gorm:"not null;default:0"`
	LosingTrades  int64           `gorm:"not null;default:0"`
	AccuracyRate  decimal.Decimal `gorm:"type:numeric(10,6);not null;default:0"`
	CreditsEarned decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	UpdatedAt     time.Time       `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (UserMarketStats) TableName() string {
	return "user_market_stats"
}

// RecomputeAccuracy refreshes AccuracyRate from the win/loss counters.
func (s *UserMarketStats) RecomputeAccuracy() {
	settled := s.WinningTrades + s.LosingTrades
	if settled <= 0 {
		s.AccuracyRate = decimal.Zero
		return
	}
	s.AccuracyRate = decimal.NewFromInt(s.WinningTrades).
		DivRound(decimal.NewFromInt(settled), 6)
}
