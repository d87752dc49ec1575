package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"factmarket/internal/amm"
	"factmarket/internal/cache"
	"factmarket/internal/config"
	"factmarket/internal/models"
	"factmarket/internal/repository"
	"factmarket/internal/stream"
)

// TradingService executes trades through the AMM. Each trade runs as a single
// transaction: lock market row, compute new pools, debit the buyer, write
// pools, append the ledger row. Nothing is observable half-done.
type TradingService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Hub    *stream.Hub
	Cache  *cache.Cache
	Config config.TradingConfig
	Market config.MarketConfig
}

type TradeResult struct {
	Trade      models.Trade     `json:"trade"`
	ProbYes    decimal.Decimal  `json:"yes_probability"`
	ProbNo     decimal.Decimal  `json:"no_probability"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
}

type PriceQuote struct {
	Yes decimal.Decimal `json:"yes"`
	No  decimal.Decimal `json:"no"`
}

// ExecuteTrade buys `amount` credits of `outcome` on behalf of a user. The
// user's available credits are debited in the same transaction as the pool
// update and ledger append.
func (s *TradingService) ExecuteTrade(ctx context.Context, userID, marketID, outcome string, amount decimal.Decimal) (*TradeResult, error) {
	return s.execute(ctx, userID, marketID, outcome, amount, true)
}

// ExecuteSystemTrade places a seeded trade under the reserved system account.
// System trades move house liquidity: no balance debit, no user stats.
func (s *TradingService) ExecuteSystemTrade(ctx context.Context, marketID, outcome string, amount decimal.Decimal) (*TradeResult, error) {
	return s.execute(ctx, models.SystemUserID, marketID, outcome, amount, false)
}

func (s *TradingService) execute(ctx context.Context, userID, marketID, outcome string, amount decimal.Decimal, debit bool) (*TradeResult, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrMarketNotFound
	}

	attempts := s.Config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var result *TradeResult
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err = s.tradeOnce(ctx, userID, marketID, outcome, amount, debit)
		if err == nil || !isRetryableTxError(err) {
			break
		}
		if s.Logger != nil {
			s.Logger.Warn("trade conflicted, retrying",
				zap.String("market_id", marketID),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
	}
	if err != nil {
		if isRetryableTxError(err) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	s.publish(ctx, marketID, result)
	return result, nil
}

func (s *TradingService) tradeOnce(ctx context.Context, userID, marketID, outcome string, amount decimal.Decimal, debit bool) (*TradeResult, error) {
	var result TradeResult
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Repo.GetMarketForUpdateTx(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return ErrMarketNotFound
		}
		if !market.IsOpen() {
			return ErrMarketClosed
		}

		res, err := amm.Buy(market.PoolYes, market.PoolNo, outcome, amount)
		if err != nil {
			return err
		}

		var newBalance *decimal.Decimal
		if debit {
			balance, err := s.Repo.GetOrCreateBalanceForUpdateTx(ctx, tx, userID, decimal.NewFromFloat(s.Market.StartingCredits))
			if err != nil {
				return err
			}
			if balance == nil || balance.AvailableCredits.LessThan(amount) {
				return ErrInsufficientBalance
			}
			balance.AvailableCredits = balance.AvailableCredits.Sub(amount)
			if err := s.Repo.SaveBalanceTx(ctx, tx, balance); err != nil {
				return err
			}
			remaining := balance.AvailableCredits
			newBalance = &remaining
		}

		market.PoolYes = res.PoolYes
		market.PoolNo = res.PoolNo
		if err := s.Repo.SaveMarketTx(ctx, tx, market); err != nil {
			return err
		}

		trade := models.Trade{
			MarketID: market.ID,
			UserID:   userID,
			Outcome:  outcome,
			Shares:   res.Shares,
			Cost:     res.Cost,
			Price:    res.Price,
		}
		if err := s.Repo.AppendTradeTx(ctx, tx, &trade); err != nil {
			return err
		}

		if debit {
			if err := s.Repo.BumpTradeStatsTx(ctx, tx, userID, res.Cost); err != nil {
				return err
			}
		}

		result = TradeResult{
			Trade:      trade,
			ProbYes:    res.ProbYes,
			ProbNo:     res.ProbNo,
			NewBalance: newBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *TradingService) publish(ctx context.Context, marketID string, result *TradeResult) {
	if result == nil {
		return
	}
	yes, _ := result.ProbYes.Float64()
	no, _ := result.ProbNo.Float64()
	if s.Hub != nil {
		s.Hub.Publish(stream.PriceUpdate{
			MarketID:     marketID,
			YesPrice:     yes,
			NoPrice:      no,
			MarketStatus: models.MarketStatusOpen,
			Timestamp:    time.Now().UTC(),
		})
	}
	s.Cache.SetPrice(ctx, marketID, yes, no, 0)
}

// Price returns the market's implied probabilities, served from cache when
// possible.
func (s *TradingService) Price(ctx context.Context, marketID string) (*PriceQuote, error) {
	if yes, no, ok := s.Cache.GetPrice(ctx, marketID); ok {
		return &PriceQuote{
			Yes: decimal.NewFromFloat(yes),
			No:  decimal.NewFromFloat(no),
		}, nil
	}
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	pYes, pNo := amm.Price(market.PoolYes, market.PoolNo)
	yes, _ := pYes.Float64()
	no, _ := pNo.Float64()
	s.Cache.SetPrice(ctx, marketID, yes, no, 0)
	return &PriceQuote{Yes: pYes, No: pNo}, nil
}

// Volume returns the sum of trade costs on a market.
func (s *TradingService) Volume(ctx context.Context, marketID string) (decimal.Decimal, error) {
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return decimal.Zero, err
	}
	if market == nil {
		return decimal.Zero, ErrMarketNotFound
	}
	return s.Repo.MarketVolume(ctx, marketID)
}
