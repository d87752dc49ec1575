package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"factmarket/internal/amm"
	"factmarket/internal/models"
	"factmarket/internal/repository"
)

// PortfolioService derives positions and P&L from the ledger. Positions are
// never stored; they are recomputed lazily on read.
type PortfolioService struct {
	Repo repository.Repository
}

type Position struct {
	MarketID      string          `json:"market_id"`
	Question      string          `json:"question"`
	MarketStatus  string          `json:"market_status"`
	Outcome       string          `json:"outcome"`
	Shares        decimal.Decimal `json:"shares"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

type PortfolioSummary struct {
	UserID           string          `json:"user_id"`
	AvailableCredits decimal.Decimal `json:"available_credits"`
	Invested         decimal.Decimal `json:"invested"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	TotalPnL         decimal.Decimal `json:"total_pnl"`
	WinningPositions int             `json:"winning_positions"`
	LosingPositions  int             `json:"losing_positions"`
	Positions        []Position      `json:"positions"`
}

// positionAggregate is the per-(market, outcome) rollup of a user's trades.
type positionAggregate struct {
	MarketID  string
	Outcome   string
	Shares    decimal.Decimal
	CostBasis decimal.Decimal
}

func aggregatePositions(trades []models.Trade) []positionAggregate {
	type key struct{ market, outcome string }
	byKey := map[key]*positionAggregate{}
	order := []key{}
	for _, tr := range trades {
		k := key{tr.MarketID, tr.Outcome}
		agg := byKey[k]
		if agg == nil {
			agg = &positionAggregate{MarketID: tr.MarketID, Outcome: tr.Outcome}
			byKey[k] = agg
			order = append(order, k)
		}
		agg.Shares = agg.Shares.Add(tr.Shares)
		agg.CostBasis = agg.CostBasis.Add(tr.Cost)
	}
	out := make([]positionAggregate, 0, len(order))
	for _, k := range order {
		if byKey[k].Shares.IsPositive() {
			out = append(out, *byKey[k])
		}
	}
	return out
}

// valuePosition marks a position to market. Open markets price at the current
// AMM price; resolved markets pay 1.0 per winning share and 0 otherwise;
// cancelled markets value at cost because spent credits were refunded.
func valuePosition(agg positionAggregate, market *models.Market) Position {
	pos := Position{
		MarketID:     agg.MarketID,
		Outcome:      agg.Outcome,
		Shares:       agg.Shares,
		CostBasis:    agg.CostBasis,
		MarketStatus: models.MarketStatusOpen,
	}
	if agg.Shares.IsPositive() {
		pos.AvgPrice = agg.CostBasis.DivRound(agg.Shares, 12)
	}
	if market == nil {
		pos.CurrentValue = agg.CostBasis
		pos.UnrealizedPnL = decimal.Zero
		return pos
	}
	pos.Question = market.Question
	pos.MarketStatus = market.Status

	switch market.Status {
	case models.MarketStatusResolved:
		if market.WinningOutcome != nil && *market.WinningOutcome == agg.Outcome {
			pos.CurrentValue = agg.Shares
		} else {
			pos.CurrentValue = decimal.Zero
		}
	case models.MarketStatusCancelled:
		pos.CurrentValue = agg.CostBasis
	default:
		pYes, pNo := amm.Price(market.PoolYes, market.PoolNo)
		price := pYes
		if agg.Outcome == models.OutcomeNo {
			price = pNo
		}
		pos.CurrentValue = agg.Shares.Mul(price).Round(12)
	}
	pos.UnrealizedPnL = pos.CurrentValue.Sub(pos.CostBasis)
	return pos
}

// Positions returns the user's per-(market, outcome) positions, priced
// against current market state.
func (s *PortfolioService) Positions(ctx context.Context, userID string, includeResolved bool) ([]Position, error) {
	trades, err := s.Repo.ListTradesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	aggs := aggregatePositions(trades)

	markets := map[string]*models.Market{}
	for _, agg := range aggs {
		if _, seen := markets[agg.MarketID]; seen {
			continue
		}
		market, err := s.Repo.GetMarketByID(ctx, agg.MarketID)
		if err != nil {
			return nil, err
		}
		markets[agg.MarketID] = market
	}

	positions := make([]Position, 0, len(aggs))
	for _, agg := range aggs {
		market := markets[agg.MarketID]
		if !includeResolved && market != nil && market.Status != models.MarketStatusOpen {
			continue
		}
		positions = append(positions, valuePosition(agg, market))
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].CostBasis.GreaterThan(positions[j].CostBasis)
	})
	return positions, nil
}

// Summary aggregates invested credits, value, and P&L across positions.
func (s *PortfolioService) Summary(ctx context.Context, userID string) (*PortfolioSummary, error) {
	positions, err := s.Positions(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	summary := PortfolioSummary{
		UserID:       userID,
		Invested:     decimal.Zero,
		CurrentValue: decimal.Zero,
		TotalPnL:     decimal.Zero,
		Positions:    positions,
	}
	for _, pos := range positions {
		summary.Invested = summary.Invested.Add(pos.CostBasis)
		summary.CurrentValue = summary.CurrentValue.Add(pos.CurrentValue)
		summary.TotalPnL = summary.TotalPnL.Add(pos.UnrealizedPnL)
		if pos.MarketStatus == models.MarketStatusResolved {
			if pos.UnrealizedPnL.IsPositive() {
				summary.WinningPositions++
			} else if pos.UnrealizedPnL.IsNegative() {
				summary.LosingPositions++
			}
		}
	}

	balance, err := s.Repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance != nil {
		summary.AvailableCredits = balance.AvailableCredits
	}
	return &summary, nil
}
