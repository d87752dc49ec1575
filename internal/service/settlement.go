package service

import (
	"github.com/shopspring/decimal"

	"factmarket/internal/models"
)

// holdings maps userID -> outcome -> net shares, built from the ledger.
type holdings map[string]map[string]decimal.Decimal

func aggregateHoldings(trades []models.Trade) holdings {
	out := holdings{}
	for _, tr := range trades {
		byOutcome := out[tr.UserID]
		if byOutcome == nil {
			byOutcome = map[string]decimal.Decimal{}
			out[tr.UserID] = byOutcome
		}
		byOutcome[tr.Outcome] = byOutcome[tr.Outcome].Add(tr.Shares)
	}
	return out
}

// computePayouts returns the credits owed per user at resolution: one credit
// per winning share, nothing for losing shares. The system account is a
// holder like any other so total payouts equal total winning shares.
func computePayouts(trades []models.Trade, winner string) map[string]decimal.Decimal {
	payouts := map[string]decimal.Decimal{}
	for user, byOutcome := range aggregateHoldings(trades) {
		shares := byOutcome[winner]
		if shares.IsPositive() {
			payouts[user] = shares
		}
	}
	return payouts
}

// computeRefunds returns each user's total spent credits on a cancelled
// market. The system account is excluded: seeded trades were never debited,
// refunding them would mint credits.
func computeRefunds(trades []models.Trade) map[string]decimal.Decimal {
	refunds := map[string]decimal.Decimal{}
	for _, tr := range trades {
		if tr.UserID == models.SystemUserID {
			continue
		}
		refunds[tr.UserID] = refunds[tr.UserID].Add(tr.Cost)
	}
	return refunds
}

// resolutionOutcome summarizes one user's result for the stats aggregator.
type resolutionOutcome struct {
	WinningPositions int64
	LosingPositions  int64
	Earned           decimal.Decimal
}

// computeResolutionOutcomes buckets each real user's positions into winning
// and losing. A user holding both outcomes gets one of each.
func computeResolutionOutcomes(trades []models.Trade, winner string) map[string]resolutionOutcome {
	outcomes := map[string]resolutionOutcome{}
	for user, byOutcome := range aggregateHoldings(trades) {
		if user == models.SystemUserID {
			continue
		}
		var res resolutionOutcome
		for outcome, shares := range byOutcome {
			if !shares.IsPositive() {
				continue
			}
			if outcome == winner {
				res.WinningPositions++
				res.Earned = res.Earned.Add(shares)
			} else {
				res.LosingPositions++
			}
		}
		if res.WinningPositions > 0 || res.LosingPositions > 0 {
			outcomes[user] = res
		}
	}
	return outcomes
}
