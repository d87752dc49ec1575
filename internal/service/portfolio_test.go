package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"factmarket/internal/models"
)

func TestAggregatePositions_GroupsByMarketAndOutcome(t *testing.T) {
	trades := []models.Trade{
		{MarketID: "m1", Outcome: models.OutcomeYes, Shares: d("30"), Cost: d("35")},
		{MarketID: "m1", Outcome: models.OutcomeYes, Shares: d("20"), Cost: d("28")},
		{MarketID: "m1", Outcome: models.OutcomeNo, Shares: d("10"), Cost: d("4")},
		{MarketID: "m2", Outcome: models.OutcomeYes, Shares: d("5"), Cost: d("3")},
	}
	aggs := aggregatePositions(trades)
	if len(aggs) != 3 {
		t.Fatalf("positions=%d want 3", len(aggs))
	}
	first := aggs[0]
	if first.MarketID != "m1" || first.Outcome != models.OutcomeYes {
		t.Fatalf("first position=%+v want m1/yes", first)
	}
	if !first.Shares.Equal(d("50")) || !first.CostBasis.Equal(d("63")) {
		t.Fatalf("m1/yes shares=%s cost=%s want 50/63", first.Shares, first.CostBasis)
	}
}

func TestValuePosition_OpenMarketUsesAMMPrice(t *testing.T) {
	market := &models.Market{
		ID:      "m1",
		Status:  models.MarketStatusOpen,
		PoolYes: d("1100"),
		PoolNo:  d("909.090909090909"),
	}
	agg := positionAggregate{MarketID: "m1", Outcome: models.OutcomeYes, Shares: d("90.91"), CostBasis: d("100")}
	pos := valuePosition(agg, market)

	// p_yes = 121/221 ~ 0.5475; value ~ 90.91 * 0.5475 ~ 49.78.
	if pos.CurrentValue.Sub(d("49.77")).Abs().GreaterThan(d("0.05")) {
		t.Fatalf("value=%s want ~49.78", pos.CurrentValue)
	}
	if !pos.UnrealizedPnL.Equal(pos.CurrentValue.Sub(d("100"))) {
		t.Fatalf("pnl=%s want value-cost", pos.UnrealizedPnL)
	}
	if !pos.AvgPrice.Equal(d("100").DivRound(d("90.91"), 12)) {
		t.Fatalf("avg price=%s want cost/shares", pos.AvgPrice)
	}
}

func TestValuePosition_ResolvedWinnerPaysOnePerShare(t *testing.T) {
	winner := models.OutcomeYes
	market := &models.Market{
		ID:             "m1",
		Status:         models.MarketStatusResolved,
		WinningOutcome: &winner,
		PoolYes:        d("1100"),
		PoolNo:         d("909.09"),
	}

	won := valuePosition(positionAggregate{MarketID: "m1", Outcome: models.OutcomeYes, Shares: d("90.91"), CostBasis: d("100")}, market)
	if !won.CurrentValue.Equal(d("90.91")) {
		t.Fatalf("winner value=%s want 90.91", won.CurrentValue)
	}

	lost := valuePosition(positionAggregate{MarketID: "m1", Outcome: models.OutcomeNo, Shares: d("50"), CostBasis: d("55")}, market)
	if !lost.CurrentValue.IsZero() {
		t.Fatalf("loser value=%s want 0", lost.CurrentValue)
	}
	if !lost.UnrealizedPnL.Equal(d("-55")) {
		t.Fatalf("loser pnl=%s want -55", lost.UnrealizedPnL)
	}
}

func TestValuePosition_CancelledValuesAtCost(t *testing.T) {
	market := &models.Market{ID: "m1", Status: models.MarketStatusCancelled}
	pos := valuePosition(positionAggregate{MarketID: "m1", Outcome: models.OutcomeYes, Shares: d("40"), CostBasis: d("44")}, market)
	if !pos.CurrentValue.Equal(d("44")) {
		t.Fatalf("value=%s want cost basis 44", pos.CurrentValue)
	}
	if !pos.UnrealizedPnL.Equal(decimal.Zero) {
		t.Fatalf("pnl=%s want 0", pos.UnrealizedPnL)
	}
}
