// Package amm implements the constant-product market maker over a binary
// market's two outcome pools. It is pure math: no storage, no locking, no I/O.
// Callers own the critical section around read-compute-write.
package amm

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"factmarket/internal/models"
)

var (
	ErrInvalidAmount         = errors.New("amm: trade amount must be positive")
	ErrInsufficientLiquidity = errors.New("amm: insufficient liquidity for trade size")
	ErrInvalidOutcome        = errors.New("amm: outcome must be yes or no")
)

// scale is the fixed-point precision for pool and share arithmetic. The
// counter-pool division is floored at this scale so the pool product never
// increases through rounding.
const scale = 12

// Result is the outcome of a successful buy.
type Result struct {
	Shares  decimal.Decimal
	Cost    decimal.Decimal
	Price   decimal.Decimal
	PoolYes decimal.Decimal
	PoolNo  decimal.Decimal
	ProbYes decimal.Decimal
	ProbNo  decimal.Decimal
}

// Price returns the implied probabilities for both outcomes. Zero pools on
// both sides fall back to 50/50; that state is unreachable while the pool
// invariant holds.
func Price(poolYes, poolNo decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	total := poolYes.Add(poolNo)
	if total.IsZero() {
		half := decimal.NewFromFloat(0.5)
		return half, half
	}
	pYes := poolYes.DivRound(total, scale)
	return pYes, decimal.NewFromInt(1).Sub(pYes)
}

// Buy executes a constant-product buy of the given outcome with `amount`
// credits against the supplied pools. The traded pool grows by the spent
// amount, the counter pool shrinks to preserve the product, and the trader
// receives the counter-pool difference as shares.
func Buy(poolYes, poolNo decimal.Decimal, outcome string, amount decimal.Decimal) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, ErrInvalidAmount
	}
	if outcome != models.OutcomeYes && outcome != models.OutcomeNo {
		return Result{}, ErrInvalidOutcome
	}

	k := poolYes.Mul(poolNo)

	var newYes, newNo, shares decimal.Decimal
	switch outcome {
	case models.OutcomeYes:
		newYes = poolYes.Add(amount)
		// QuoRem truncates, which floors the positive quotient exactly:
		// newNo <= k/newYes, so the pool product cannot grow.
		newNo, _ = k.QuoRem(newYes, scale)
		shares = poolNo.Sub(newNo)
	case models.OutcomeNo:
		newNo = poolNo.Add(amount)
		newYes, _ = k.QuoRem(newNo, scale)
		shares = poolYes.Sub(newYes)
	}

	if !newYes.IsPositive() || !newNo.IsPositive() || !shares.IsPositive() {
		return Result{}, ErrInsufficientLiquidity
	}

	pYes, pNo := Price(newYes, newNo)
	return Result{
		Shares:  shares,
		Cost:    amount,
		Price:   amount.DivRound(shares, scale),
		PoolYes: newYes,
		PoolNo:  newNo,
		ProbYes: pYes,
		ProbNo:  pNo,
	}, nil
}

// AmountForTarget returns the credits that must be spent on `outcome` to move
// the yes-probability to `targetYes`, given the current pools. It returns zero
// when the target is already met or lies on the wrong side of the trade
// direction. Float math is fine here: the result sizes a bounded seed trade,
// it never feeds pool state directly.
func AmountForTarget(poolYes, poolNo decimal.Decimal, outcome string, targetYes float64) decimal.Decimal {
	if targetYes <= 0 || targetYes >= 1 {
		return decimal.Zero
	}
	y, _ := poolYes.Float64()
	n, _ := poolNo.Float64()
	if y <= 0 || n <= 0 {
		return decimal.Zero
	}
	k := y * n

	var amount float64
	switch outcome {
	case models.OutcomeYes:
		// Buying yes grows pool_yes; solve (y+a)^2 = t*k/(1-t).
		amount = math.Sqrt(targetYes*k/(1-targetYes)) - y
	case models.OutcomeNo:
		amount = math.Sqrt((1-targetYes)*k/targetYes) - n
	default:
		return decimal.Zero
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(amount).Round(scale)
}
