package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"factmarket/internal/cache"
	"factmarket/internal/config"
	"factmarket/internal/models"
	"factmarket/internal/repository"
)

// StatsService rolls per-user trade outcomes into ranking statistics. It is
// the only writer of the win/loss/accuracy/earnings fields; trade count and
// volume are bumped by the trading path.
type StatsService struct {
	Repo   repository.Repository
	Cache  *cache.Cache
	Logger *zap.Logger
	Config config.StatsConfig
}

type LeaderboardEntry struct {
	Rank          int             `json:"rank"`
	UserID        string          `json:"user_id"`
	AccuracyRate  decimal.Decimal `json:"accuracy_rate"`
	WinningTrades int64           `json:"winning_trades"`
	LosingTrades  int64           `json:"losing_trades"`
	TotalTrades   int64           `json:"total_trades"`
	TotalVolume   decimal.Decimal `json:"total_volume"`
	CreditsEarned decimal.Decimal `json:"credits_earned"`
}

// ApplyResolutionTx updates every position holder's stats inside the
// resolution transaction: a failed stats write rolls the whole resolution
// back so it can be retried without double-paying.
func (s *StatsService) ApplyResolutionTx(ctx context.Context, tx *gorm.DB, trades []models.Trade, winner string) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	for user, outcome := range computeResolutionOutcomes(trades, winner) {
		stats, err := s.Repo.GetOrCreateStatsForUpdateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		if stats == nil {
			continue
		}
		stats.WinningTrades += outcome.WinningPositions
		stats.LosingTrades += outcome.LosingPositions
		stats.CreditsEarned = stats.CreditsEarned.Add(outcome.Earned)
		stats.RecomputeAccuracy()
		if err := s.Repo.SaveStatsTx(ctx, tx, stats); err != nil {
			return err
		}
	}
	return nil
}

// Leaderboard ranks users active in the window by accuracy, ties broken by
// credits earned. Served from cache when available.
func (s *StatsService) Leaderboard(ctx context.Context, days, limit int) ([]LeaderboardEntry, error) {
	if days <= 0 {
		days = s.Config.LeaderboardDays
	}
	if limit <= 0 {
		limit = s.Config.LeaderboardLimit
	}

	var cached []LeaderboardEntry
	if s.Cache.GetLeaderboard(ctx, days, limit, &cached) {
		return cached, nil
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.Repo.Leaderboard(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:          i + 1,
			UserID:        row.UserID,
			AccuracyRate:  row.AccuracyRate,
			WinningTrades: row.WinningTrades,
			LosingTrades:  row.LosingTrades,
			TotalTrades:   row.TotalTrades,
			TotalVolume:   row.TotalVolume,
			CreditsEarned: row.CreditsEarned,
		})
	}

	s.Cache.SetLeaderboard(ctx, days, limit, entries, s.Config.LeaderboardCacheTTL)
	return entries, nil
}

// UserStats returns a single user's aggregate, zero-valued if they have never
// traded.
func (s *StatsService) UserStats(ctx context.Context, userID string) (*models.UserMarketStats, error) {
	stats, err := s.Repo.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &models.UserMarketStats{
			UserID:        userID,
			TotalVolume:   decimal.Zero,
			AccuracyRate:  decimal.Zero,
			CreditsEarned: decimal.Zero,
		}
	}
	return stats, nil
}
