package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"factmarket/internal/models"
)

type ListMarketsParams struct {
	Status   *string
	Category *string
	Limit    int
	Offset   int
	OrderBy  string
	Asc      *bool
}

type VoteTally struct {
	Yes   int64 `json:"yes"`
	No    int64 `json:"no"`
	Total int64 `json:"total"`
}

// Repository is the storage boundary of the market engine. Methods with a Tx
// suffix run inside a transaction opened by InTx; the AMM critical section
// ("lock market row, compute, write pools, append trade, move credits") is
// built from them.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Markets.
	CreateMarket(ctx context.Context, item *models.Market) error
	GetMarketByID(ctx context.Context, id string) (*models.Market, error)
	GetMarketBySlug(ctx context.Context, slug string) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	CountMarkets(ctx context.Context, params ListMarketsParams) (int64, error)
	GetMarketForUpdateTx(ctx context.Context, tx *gorm.DB, id string) (*models.Market, error)
	SaveMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error
	ListSeedCandidates(ctx context.Context, limit int) ([]models.Market, error)
	ListReassessCandidates(ctx context.Context, olderThan time.Time, maxTrades int64, limit int) ([]models.Market, error)

	// Trade ledger (append-only).
	AppendTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error
	ListTradesByMarket(ctx context.Context, marketID string) ([]models.Trade, error)
	ListTradesByMarketTx(ctx context.Context, tx *gorm.DB, marketID string) ([]models.Trade, error)
	ListTradesByUser(ctx context.Context, userID string) ([]models.Trade, error)
	CountTradesByMarket(ctx context.Context, marketID string) (int64, error)
	MarketVolume(ctx context.Context, marketID string) (decimal.Decimal, error)

	// Balances.
	GetBalance(ctx context.Context, userID string) (*models.UserBalance, error)
	GetOrCreateBalanceForUpdateTx(ctx context.Context, tx *gorm.DB, userID string, starting decimal.Decimal) (*models.UserBalance, error)
	SaveBalanceTx(ctx context.Context, tx *gorm.DB, item *models.UserBalance) error
	CreditBalanceTx(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal) error

	// Per-user stats.
	GetStats(ctx context.Context, userID string) (*models.UserMarketStats, error)
	BumpTradeStatsTx(ctx context.Context, tx *gorm.DB, userID string, volume decimal.Decimal) error
	GetOrCreateStatsForUpdateTx(ctx context.Context, tx *gorm.DB, userID string) (*models.UserMarketStats, error)
	SaveStatsTx(ctx context.Context, tx *gorm.DB, item *models.UserMarketStats) error
	Leaderboard(ctx context.Context, since time.Time, limit int) ([]models.UserMarketStats, error)

	// Votes (no monetary effect).
	UpsertVote(ctx context.Context, item *models.MarketVote) error
	ListVotesByMarket(ctx context.Context, marketID string) ([]models.MarketVote, error)
	TallyVotes(ctx context.Context, marketID string) (VoteTally, error)

	// Seeding audit trail.
	InsertSeedAttempt(ctx context.Context, item *models.SeedAttempt) error
	CountExecutedSeedAttempts(ctx context.Context, marketID string, kind string) (int64, error)
	ListSeedAttempts(ctx context.Context, marketID string) ([]models.SeedAttempt, error)
}
