package service

import (
	"context"
	"strings"

	"factmarket/internal/amm"
	"factmarket/internal/models"
	"factmarket/internal/repository"
)

// VoteService records no-stake opinions. Plain counters, no pools, no
// balances; a resubmitted vote replaces the previous one.
type VoteService struct {
	Repo repository.Repository
}

type VoteInput struct {
	MarketID   string
	UserID     string
	Outcome    string
	Confidence *int
	Reasoning  *string
}

func (s *VoteService) Submit(ctx context.Context, input VoteInput) (*models.MarketVote, error) {
	if input.Outcome != models.OutcomeYes && input.Outcome != models.OutcomeNo {
		return nil, amm.ErrInvalidOutcome
	}
	market, err := s.Repo.GetMarketByID(ctx, input.MarketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	if !market.IsOpen() {
		return nil, ErrMarketClosed
	}

	vote := models.MarketVote{
		MarketID:   market.ID,
		UserID:     strings.TrimSpace(input.UserID),
		Outcome:    input.Outcome,
		Confidence: input.Confidence,
		Reasoning:  input.Reasoning,
	}
	if err := s.Repo.UpsertVote(ctx, &vote); err != nil {
		return nil, err
	}
	return &vote, nil
}

func (s *VoteService) Tally(ctx context.Context, marketID string) (repository.VoteTally, error) {
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return repository.VoteTally{}, err
	}
	if market == nil {
		return repository.VoteTally{}, ErrMarketNotFound
	}
	return s.Repo.TallyVotes(ctx, marketID)
}

func (s *VoteService) List(ctx context.Context, marketID string) ([]models.MarketVote, error) {
	return s.Repo.ListVotesByMarket(ctx, marketID)
}
