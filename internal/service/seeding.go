package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"factmarket/internal/amm"
	"factmarket/internal/client/assessor"
	"factmarket/internal/config"
	"factmarket/internal/models"
	"factmarket/internal/repository"
)

// Skip reasons recorded on seed attempts.
const (
	reasonAlreadyTraded         = "already_traded"
	reasonAlreadySeeded         = "already_seeded"
	reasonLowConfidence         = "low_confidence"
	reasonZeroAmount            = "zero_amount"
	reasonWithinBand            = "within_band"
	reasonTooRecent             = "too_recent"
	reasonTooActive             = "too_active"
	reasonAssessmentUnavailable = "assessment_unavailable"
)

// Assessor is the external probability assessment collaborator.
type Assessor interface {
	Assess(ctx context.Context, req assessor.AssessRequest) (assessor.Assessment, error)
}

// SeedingService moves fresh or stale markets off naive 50/50 using an
// external assessment, through the same AMM path as user trades. It runs on
// its own schedule and never blocks a user-facing trade.
type SeedingService struct {
	Repo     repository.Repository
	Assessor Assessor
	Trading  *TradingService
	Logger   *zap.Logger
	Config   config.SeedingConfig
}

// seedDecision is the outcome of the pure decision step: either a trade to
// place or a skip with a reason.
type seedDecision struct {
	Execute bool
	Reason  string
	Outcome string
	Amount  decimal.Decimal
}

// decideSeed gates the initial seed trade. Low-confidence assessments are
// skipped entirely; confident ones are clamped so a single automated opinion
// can move the implied probability at most MaxShift away from 50%.
func decideSeed(a assessor.Assessment, poolYes, poolNo decimal.Decimal, cfg config.SeedingConfig) seedDecision {
	if a.Confidence < cfg.MinConfidence {
		return seedDecision{Reason: reasonLowConfidence}
	}

	outcome := models.OutcomeNo
	if a.YesProbability > 0.5 {
		outcome = models.OutcomeYes
	}

	target := clamp(a.YesProbability, 0.5-cfg.MaxShift, 0.5+cfg.MaxShift)
	amount := decimal.NewFromFloat(a.RecommendedSeedAmount)
	if bound := amm.AmountForTarget(poolYes, poolNo, outcome, target); bound.IsPositive() && bound.LessThan(amount) {
		amount = bound
	}
	if !amount.IsPositive() {
		return seedDecision{Reason: reasonZeroAmount}
	}
	return seedDecision{Execute: true, Outcome: outcome, Amount: amount}
}

// decideReassess gates the corrective trade on an aged, thinly traded market.
// It only fires on a confident assessment that disagrees with the current
// price by more than the band, and its size is capped to bound the blast
// radius of one automated opinion.
func decideReassess(a assessor.Assessment, currentYes float64, cfg config.SeedingConfig) seedDecision {
	if a.Confidence <= cfg.ReassessMinConfidence {
		return seedDecision{Reason: reasonLowConfidence}
	}
	if math.Abs(a.YesProbability-currentYes) <= cfg.ReassessMinGap {
		return seedDecision{Reason: reasonWithinBand}
	}

	outcome := models.OutcomeNo
	if a.YesProbability > currentYes {
		outcome = models.OutcomeYes
	}

	amount := math.Min(cfg.ReassessMaxAmount, a.RecommendedSeedAmount*cfg.ReassessSeedFraction)
	if amount <= 0 {
		return seedDecision{Reason: reasonZeroAmount}
	}
	return seedDecision{Execute: true, Outcome: outcome, Amount: decimal.NewFromFloat(amount).Round(2)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Seed places the single initial seed trade on a market with zero trades.
func (s *SeedingService) Seed(ctx context.Context, marketID string) (*models.SeedAttempt, error) {
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	if !market.IsOpen() {
		return nil, ErrMarketClosed
	}

	count, err := s.Repo.CountTradesByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return s.recordSkip(ctx, market, models.SeedKindInitial, reasonAlreadyTraded, nil)
	}
	// Guard for direct calls; the candidate scan already excludes seeded markets.
	seeded, err := s.Repo.CountExecutedSeedAttempts(ctx, marketID, models.SeedKindInitial)
	if err != nil {
		return nil, err
	}
	if seeded > 0 {
		return s.recordSkip(ctx, market, models.SeedKindInitial, reasonAlreadySeeded, nil)
	}

	a, err := s.assess(ctx, market)
	if err != nil {
		_, _ = s.recordFailure(ctx, market, models.SeedKindInitial, reasonAssessmentUnavailable)
		return nil, err
	}

	decision := decideSeed(a, market.PoolYes, market.PoolNo, s.Config)
	if !decision.Execute {
		return s.recordSkip(ctx, market, models.SeedKindInitial, decision.Reason, &a)
	}
	return s.executeDecision(ctx, market, models.SeedKindInitial, decision, a)
}

// Reassess re-queries the assessor for an aged, low-volume market and places
// a bounded correction trade when warranted.
func (s *SeedingService) Reassess(ctx context.Context, marketID string) (*models.SeedAttempt, error) {
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	if !market.IsOpen() {
		return nil, ErrMarketClosed
	}

	if age := time.Since(market.CreatedAt); age < s.Config.ReassessAfter {
		return s.recordSkip(ctx, market, models.SeedKindReassess, reasonTooRecent, nil)
	}
	count, err := s.Repo.CountTradesByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if count >= s.Config.ReassessMaxTrades {
		return s.recordSkip(ctx, market, models.SeedKindReassess, reasonTooActive, nil)
	}

	a, err := s.assess(ctx, market)
	if err != nil {
		_, _ = s.recordFailure(ctx, market, models.SeedKindReassess, reasonAssessmentUnavailable)
		return nil, err
	}

	pYes, _ := amm.Price(market.PoolYes, market.PoolNo)
	currentYes, _ := pYes.Float64()
	decision := decideReassess(a, currentYes, s.Config)
	if !decision.Execute {
		return s.recordSkip(ctx, market, models.SeedKindReassess, decision.Reason, &a)
	}
	return s.executeDecision(ctx, market, models.SeedKindReassess, decision, a)
}

// ScanAndSeed seeds every open market that has no trades yet, a bounded
// number at a time.
func (s *SeedingService) ScanAndSeed(ctx context.Context) {
	markets, err := s.Repo.ListSeedCandidates(ctx, s.Config.ScanLimit)
	if err != nil {
		s.warn("seed candidate scan failed", err)
		return
	}
	s.runBatch(ctx, markets, s.Seed)
}

// ScanAndReassess revisits markets older than the reassessment age with too
// few trades.
func (s *SeedingService) ScanAndReassess(ctx context.Context) {
	olderThan := time.Now().UTC().Add(-s.Config.ReassessAfter)
	markets, err := s.Repo.ListReassessCandidates(ctx, olderThan, s.Config.ReassessMaxTrades, s.Config.ScanLimit)
	if err != nil {
		s.warn("reassess candidate scan failed", err)
		return
	}
	s.runBatch(ctx, markets, s.Reassess)
}

func (s *SeedingService) runBatch(ctx context.Context, markets []models.Market, fn func(context.Context, string) (*models.SeedAttempt, error)) {
	if len(markets) == 0 {
		return
	}
	parallelism := s.Config.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, market := range markets {
		id := market.ID
		g.Go(func() error {
			if _, err := fn(gctx, id); err != nil {
				s.warn("seeding job failed for market "+id, err)
			}
			// A failed market never aborts the batch.
			return nil
		})
	}
	_ = g.Wait()
}

func (s *SeedingService) assess(ctx context.Context, market *models.Market) (assessor.Assessment, error) {
	pYes, _ := amm.Price(market.PoolYes, market.PoolNo)
	currentYes, _ := pYes.Float64()
	req := assessor.AssessRequest{
		MarketID:       market.ID,
		Question:       market.Question,
		CurrentYesProb: currentYes,
	}
	if market.Description != nil {
		req.Description = *market.Description
	}
	if market.Category != nil {
		req.Category = *market.Category
	}
	return s.Assessor.Assess(ctx, req)
}

func (s *SeedingService) executeDecision(ctx context.Context, market *models.Market, kind string, decision seedDecision, a assessor.Assessment) (*models.SeedAttempt, error) {
	trade, err := s.Trading.ExecuteSystemTrade(ctx, market.ID, decision.Outcome, decision.Amount)
	if err != nil {
		attempt := s.newAttempt(market.ID, kind, models.SeedStatusFailed, nil, &a)
		attempt.Outcome = &decision.Outcome
		attempt.Amount = &decision.Amount
		_ = s.Repo.InsertSeedAttempt(ctx, attempt)
		return nil, err
	}

	attempt := s.newAttempt(market.ID, kind, models.SeedStatusExecuted, nil, &a)
	attempt.Outcome = &decision.Outcome
	attempt.Amount = &decision.Amount
	attempt.Shares = &trade.Trade.Shares
	if err := s.Repo.InsertSeedAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("seed trade executed",
			zap.String("market_id", market.ID),
			zap.String("kind", kind),
			zap.String("outcome", decision.Outcome),
			zap.String("amount", decision.Amount.StringFixed(2)),
		)
	}
	return attempt, nil
}

func (s *SeedingService) recordSkip(ctx context.Context, market *models.Market, kind, reason string, a *assessor.Assessment) (*models.SeedAttempt, error) {
	attempt := s.newAttempt(market.ID, kind, models.SeedStatusSkipped, &reason, a)
	if err := s.Repo.InsertSeedAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debug("seeding skipped",
			zap.String("market_id", market.ID),
			zap.String("kind", kind),
			zap.String("reason", reason),
		)
	}
	return attempt, nil
}

func (s *SeedingService) recordFailure(ctx context.Context, market *models.Market, kind, reason string) (*models.SeedAttempt, error) {
	attempt := s.newAttempt(market.ID, kind, models.SeedStatusFailed, &reason, nil)
	if err := s.Repo.InsertSeedAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *SeedingService) newAttempt(marketID, kind, status string, reason *string, a *assessor.Assessment) *models.SeedAttempt {
	attempt := &models.SeedAttempt{
		MarketID: marketID,
		Kind:     kind,
		Status:   status,
		Reason:   reason,
	}
	if a != nil {
		prob := decimal.NewFromFloat(a.YesProbability).Round(6)
		conf := decimal.NewFromFloat(a.Confidence).Round(6)
		attempt.YesProbability = &prob
		attempt.Confidence = &conf
		if raw, err := json.Marshal(a); err == nil {
			attempt.RawAssessment = datatypes.JSON(raw)
		}
	}
	return attempt
}

func (s *SeedingService) warn(msg string, err error) {
	if s.Logger != nil {
		s.Logger.Warn(msg, zap.Error(err))
	}
}
