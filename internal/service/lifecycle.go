package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"factmarket/internal/amm"
	"factmarket/internal/cache"
	"factmarket/internal/config"
	"factmarket/internal/models"
	"factmarket/internal/notify"
	"factmarket/internal/repository"
	"factmarket/internal/stream"
)

// LifecycleService owns market status transitions. Open -> Resolved and
// Open -> Cancelled are the only legal moves, both terminal, both executed
// under the market row lock so they exclude in-flight trades.
type LifecycleService struct {
	Repo     repository.Repository
	Stats    *StatsService
	Notifier notify.Notifier
	Hub      *stream.Hub
	Cache    *cache.Cache
	Logger   *zap.Logger
	Market   config.MarketConfig
}

type CreateMarketInput struct {
	Question           string     `json:"question"`
	Description        *string    `json:"description"`
	ResolutionCriteria *string    `json:"resolution_criteria"`
	Category           *string    `json:"category"`
	ClaimID            *string    `json:"claim_id"`
	CreatorID          *string    `json:"creator_id"`
	ClosesAt           *time.Time `json:"closes_at"`
}

type ResolutionResult struct {
	MarketID      string          `json:"market_id"`
	Winner        string          `json:"winning_outcome"`
	PayoutsIssued int             `json:"payouts_issued"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	ProbYes       decimal.Decimal `json:"yes_probability"`
	ProbNo        decimal.Decimal `json:"no_probability"`
}

type CancelResult struct {
	MarketID      string          `json:"market_id"`
	RefundsIssued int             `json:"refunds_issued"`
	TotalRefunded decimal.Decimal `json:"total_refunded"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(question string) string {
	slug := strings.ToLower(strings.TrimSpace(question))
	slug = slugStrip.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	return slug
}

// CreateMarket opens a new market with equal seed pools (50% implied
// probability).
func (s *LifecycleService) CreateMarket(ctx context.Context, input CreateMarketInput) (*models.Market, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	seed := decimal.NewFromFloat(s.Market.SeedPool)
	if !seed.IsPositive() {
		seed = decimal.NewFromInt(1000)
	}

	id := uuid.NewString()
	slug := slugify(question)
	if slug == "" {
		slug = id[:8]
	}
	if existing, err := s.Repo.GetMarketBySlug(ctx, slug); err != nil {
		return nil, err
	} else if existing != nil {
		slug = slug + "-" + id[:8]
	}

	market := models.Market{
		ID:                 id,
		Slug:               &slug,
		Question:           question,
		Description:        input.Description,
		ResolutionCriteria: input.ResolutionCriteria,
		Category:           input.Category,
		ClaimID:            input.ClaimID,
		CreatorID:          input.CreatorID,
		ClosesAt:           input.ClosesAt,
		PoolYes:            seed,
		PoolNo:             seed,
		SeedPoolYes:        seed,
		SeedPoolNo:         seed,
		Status:             models.MarketStatusOpen,
	}
	if err := s.Repo.CreateMarket(ctx, &market); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("market created",
			zap.String("market_id", market.ID),
			zap.String("slug", slug),
		)
	}
	return &market, nil
}

// Resolve settles a market: fixes the winning outcome, credits one credit per
// winning share, updates per-user stats, all in one transaction. The status
// check under the row lock makes the payout exactly-once: a second call sees
// Resolved and gets ErrAlreadyResolved without touching balances.
func (s *LifecycleService) Resolve(ctx context.Context, marketID, winner, source string) (*ResolutionResult, error) {
	if winner != models.OutcomeYes && winner != models.OutcomeNo {
		return nil, amm.ErrInvalidOutcome
	}

	var result ResolutionResult
	var payouts map[string]decimal.Decimal
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Repo.GetMarketForUpdateTx(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return ErrMarketNotFound
		}
		switch market.Status {
		case models.MarketStatusOpen:
		case models.MarketStatusResolved:
			return ErrAlreadyResolved
		default:
			return ErrInvalidTransition
		}

		now := time.Now().UTC()
		market.Status = models.MarketStatusResolved
		market.WinningOutcome = &winner
		market.ResolvedAt = &now
		if src := strings.TrimSpace(source); src != "" {
			market.ResolutionSource = &src
		}
		if err := s.Repo.SaveMarketTx(ctx, tx, market); err != nil {
			return err
		}

		trades, err := s.Repo.ListTradesByMarketTx(ctx, tx, marketID)
		if err != nil {
			return err
		}

		payouts = computePayouts(trades, winner)
		total := decimal.Zero
		for user, shares := range payouts {
			if err := s.Repo.CreditBalanceTx(ctx, tx, user, shares); err != nil {
				return err
			}
			total = total.Add(shares)
		}

		if err := s.Stats.ApplyResolutionTx(ctx, tx, trades, winner); err != nil {
			return err
		}

		pYes, pNo := amm.Price(market.PoolYes, market.PoolNo)
		result = ResolutionResult{
			MarketID:      market.ID,
			Winner:        winner,
			PayoutsIssued: len(payouts),
			TotalPaid:     total,
			ProbYes:       pYes,
			ProbNo:        pNo,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, marketID, models.MarketStatusResolved, result.ProbYes, result.ProbNo)
	for user, shares := range payouts {
		if user == models.SystemUserID {
			continue
		}
		s.emit(ctx, user, marketID, notify.TypeMarketResolved,
			fmt.Sprintf("market resolved %s, you earned %s credits", winner, shares.StringFixed(2)))
	}
	if s.Logger != nil {
		s.Logger.Info("market resolved",
			zap.String("market_id", marketID),
			zap.String("winner", winner),
			zap.Int("payouts", result.PayoutsIssued),
			zap.String("total_paid", result.TotalPaid.StringFixed(2)),
		)
	}
	return &result, nil
}

// Cancel voids a market. Every real user gets their spent credits back; no
// winner, no payout. Refund-at-cost keeps total credits conserved.
func (s *LifecycleService) Cancel(ctx context.Context, marketID string) (*CancelResult, error) {
	var result CancelResult
	var refunds map[string]decimal.Decimal
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Repo.GetMarketForUpdateTx(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return ErrMarketNotFound
		}
		if market.Status != models.MarketStatusOpen {
			return ErrInvalidTransition
		}

		market.Status = models.MarketStatusCancelled
		if err := s.Repo.SaveMarketTx(ctx, tx, market); err != nil {
			return err
		}

		trades, err := s.Repo.ListTradesByMarketTx(ctx, tx, marketID)
		if err != nil {
			return err
		}

		refunds = computeRefunds(trades)
		total := decimal.Zero
		for user, amount := range refunds {
			if err := s.Repo.CreditBalanceTx(ctx, tx, user, amount); err != nil {
				return err
			}
			total = total.Add(amount)
		}

		result = CancelResult{
			MarketID:      market.ID,
			RefundsIssued: len(refunds),
			TotalRefunded: total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, marketID, models.MarketStatusCancelled, decimal.Zero, decimal.Zero)
	for user, amount := range refunds {
		s.emit(ctx, user, marketID, notify.TypeMarketCancelled,
			fmt.Sprintf("market cancelled, %s credits refunded", amount.StringFixed(2)))
	}
	if s.Logger != nil {
		s.Logger.Info("market cancelled",
			zap.String("market_id", marketID),
			zap.Int("refunds", result.RefundsIssued),
		)
	}
	return &result, nil
}

func (s *LifecycleService) afterTransition(ctx context.Context, marketID, status string, pYes, pNo decimal.Decimal) {
	s.Cache.InvalidatePrice(ctx, marketID)
	s.Cache.InvalidateLeaderboards(ctx)
	if s.Hub != nil {
		yes, _ := pYes.Float64()
		no, _ := pNo.Float64()
		s.Hub.Publish(stream.PriceUpdate{
			MarketID:     marketID,
			YesPrice:     yes,
			NoPrice:      no,
			MarketStatus: status,
			Timestamp:    time.Now().UTC(),
		})
	}
}

func (s *LifecycleService) emit(ctx context.Context, userID, marketID, kind, message string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Emit(ctx, notify.Notification{
		UserID:   userID,
		MarketID: marketID,
		Type:     kind,
		Message:  message,
	})
}
