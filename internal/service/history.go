package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"factmarket/internal/amm"
	"factmarket/internal/models"
)

// HistoryPoint is one step of a market's reconstructed probability trajectory.
type HistoryPoint struct {
	Timestamp      time.Time       `json:"timestamp"`
	YesProbability decimal.Decimal `json:"yes_probability"`
	NoProbability  decimal.Decimal `json:"no_probability"`
	Volume         decimal.Decimal `json:"volume"`
}

// History reconstructs the probability trajectory of a market by replaying its
// ledger from the seed pools. Point-in-time snapshots are not stored anywhere;
// the ordered trade sequence is the sole source. `days <= 0` means the full
// history; otherwise points older than the window are replayed (pools must
// evolve from the start regardless) but omitted from the result.
func (s *TradingService) History(ctx context.Context, marketID string, days int) ([]HistoryPoint, error) {
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	trades, err := s.Repo.ListTradesByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	points := replayHistory(market.SeedPoolYes, market.SeedPoolNo, trades)
	if days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		filtered := points[:0]
		for _, p := range points {
			if !p.Timestamp.Before(cutoff) {
				filtered = append(filtered, p)
			}
		}
		points = filtered
	}

	if len(points) == 0 {
		// No trades (or none inside the window): one synthetic point at the
		// current state.
		pYes, pNo := amm.Price(market.PoolYes, market.PoolNo)
		volume := decimal.Zero
		for _, tr := range trades {
			volume = volume.Add(tr.Cost)
		}
		points = []HistoryPoint{{
			Timestamp:      time.Now().UTC(),
			YesProbability: pYes,
			NoProbability:  pNo,
			Volume:         volume,
		}}
	}
	return points, nil
}

// replayHistory applies the AMM formula trade by trade starting from the seed
// pools. Trades must already be in chronological order.
func replayHistory(seedYes, seedNo decimal.Decimal, trades []models.Trade) []HistoryPoint {
	poolYes, poolNo := seedYes, seedNo
	volume := decimal.Zero
	points := make([]HistoryPoint, 0, len(trades))
	for _, tr := range trades {
		res, err := amm.Buy(poolYes, poolNo, tr.Outcome, tr.Cost)
		if err != nil {
			// Ledger rows were validated when written; a replay failure means
			// corrupted input, skip the row rather than abort the series.
			continue
		}
		poolYes, poolNo = res.PoolYes, res.PoolNo
		volume = volume.Add(tr.Cost)
		points = append(points, HistoryPoint{
			Timestamp:      tr.CreatedAt,
			YesProbability: res.ProbYes,
			NoProbability:  res.ProbNo,
			Volume:         volume,
		})
	}
	return points
}
