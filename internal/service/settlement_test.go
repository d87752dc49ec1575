package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"factmarket/internal/models"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputePayouts_WinnersOnly(t *testing.T) {
	trades := []models.Trade{
		{UserID: "alice", Outcome: models.OutcomeYes, Shares: d("90.91"), Cost: d("100")},
		{UserID: "bob", Outcome: models.OutcomeNo, Shares: d("50"), Cost: d("55")},
	}
	payouts := computePayouts(trades, models.OutcomeYes)
	if len(payouts) != 1 {
		t.Fatalf("payouts=%v want exactly alice", payouts)
	}
	if !payouts["alice"].Equal(d("90.91")) {
		t.Fatalf("alice payout=%s want 90.91", payouts["alice"])
	}
	if _, ok := payouts["bob"]; ok {
		t.Fatalf("bob holds losing shares, must not be paid")
	}
}

func TestComputePayouts_ConservesWinningShares(t *testing.T) {
	trades := []models.Trade{
		{UserID: "alice", Outcome: models.OutcomeYes, Shares: d("30")},
		{UserID: "alice", Outcome: models.OutcomeYes, Shares: d("20")},
		{UserID: "bob", Outcome: models.OutcomeYes, Shares: d("10")},
		{UserID: "carol", Outcome: models.OutcomeNo, Shares: d("40")},
	}
	payouts := computePayouts(trades, models.OutcomeYes)
	total := decimal.Zero
	for _, shares := range payouts {
		total = total.Add(shares)
	}
	if !total.Equal(d("60")) {
		t.Fatalf("total paid=%s want 60 (sum of winning shares)", total)
	}
}

func TestComputePayouts_IncludesSystemHoldings(t *testing.T) {
	trades := []models.Trade{
		{UserID: models.SystemUserID, Outcome: models.OutcomeYes, Shares: d("25")},
	}
	payouts := computePayouts(trades, models.OutcomeYes)
	if !payouts[models.SystemUserID].Equal(d("25")) {
		t.Fatalf("system payout=%s want 25", payouts[models.SystemUserID])
	}
}

func TestComputeRefunds_AtCostExcludingSystem(t *testing.T) {
	trades := []models.Trade{
		{UserID: "alice", Outcome: models.OutcomeYes, Cost: d("100")},
		{UserID: "alice", Outcome: models.OutcomeNo, Cost: d("40")},
		{UserID: models.SystemUserID, Outcome: models.OutcomeYes, Cost: d("60")},
	}
	refunds := computeRefunds(trades)
	if len(refunds) != 1 {
		t.Fatalf("refunds=%v want only alice", refunds)
	}
	if !refunds["alice"].Equal(d("140")) {
		t.Fatalf("alice refund=%s want 140", refunds["alice"])
	}
}

func TestComputeResolutionOutcomes(t *testing.T) {
	trades := []models.Trade{
		{UserID: "alice", Outcome: models.OutcomeYes, Shares: d("50")},
		{UserID: "alice", Outcome: models.OutcomeNo, Shares: d("10")},
		{UserID: "bob", Outcome: models.OutcomeNo, Shares: d("20")},
		{UserID: models.SystemUserID, Outcome: models.OutcomeYes, Shares: d("5")},
	}
	outcomes := computeResolutionOutcomes(trades, models.OutcomeYes)

	alice := outcomes["alice"]
	if alice.WinningPositions != 1 || alice.LosingPositions != 1 {
		t.Fatalf("alice outcome=%+v want 1 win, 1 loss", alice)
	}
	if !alice.Earned.Equal(d("50")) {
		t.Fatalf("alice earned=%s want 50", alice.Earned)
	}

	bob := outcomes["bob"]
	if bob.WinningPositions != 0 || bob.LosingPositions != 1 {
		t.Fatalf("bob outcome=%+v want 0 wins, 1 loss", bob)
	}
	if !bob.Earned.IsZero() {
		t.Fatalf("bob earned=%s want 0", bob.Earned)
	}

	if _, ok := outcomes[models.SystemUserID]; ok {
		t.Fatalf("system account must not appear in stats outcomes")
	}
}
