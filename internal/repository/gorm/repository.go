package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factmarket/internal/models"
	"factmarket/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- markets ----------------------------------------------------------------

func (s *Store) CreateMarket(ctx context.Context, item *models.Market) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetMarketBySlug(ctx context.Context, slug string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) applyMarketFilters(query *gorm.DB, params repository.ListMarketsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	return query
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyMarketFilters(s.db.WithContext(ctx).Model(&models.Market{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Market
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := s.applyMarketFilters(s.db.WithContext(ctx).Model(&models.Market{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// GetMarketForUpdateTx takes a row lock on the market. Every pool mutation and
// status transition goes through this lock, which serializes concurrent trades
// on the same market.
func (s *Store) GetMarketForUpdateTx(ctx context.Context, tx *gorm.DB, id string) (*models.Market, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Market
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", strings.TrimSpace(id)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) ListSeedCandidates(ctx context.Context, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.Market
	err := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("status = ?", models.MarketStatusOpen).
		Where("NOT EXISTS (SELECT 1 FROM trades WHERE trades.market_id = markets.id)").
		Where("NOT EXISTS (SELECT 1 FROM seed_attempts WHERE seed_attempts.market_id = markets.id AND seed_attempts.kind = ? AND seed_attempts.status = ?)",
			models.SeedKindInitial, models.SeedStatusExecuted).
		Order("created_at asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListReassessCandidates(ctx context.Context, olderThan time.Time, maxTrades int64, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.Market
	err := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("status = ?", models.MarketStatusOpen).
		Where("created_at < ?", olderThan).
		Where("(SELECT COUNT(*) FROM trades WHERE trades.market_id = markets.id) < ?", maxTrades).
		Order("created_at asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- trade ledger -----------------------------------------------------------

func (s *Store) AppendTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTradesByMarket(ctx context.Context, marketID string) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return listTrades(s.db.WithContext(ctx), marketID)
}

func (s *Store) ListTradesByMarketTx(ctx context.Context, tx *gorm.DB, marketID string) ([]models.Trade, error) {
	if tx == nil {
		return nil, nil
	}
	return listTrades(tx.WithContext(ctx), marketID)
}

func listTrades(db *gorm.DB, marketID string) ([]models.Trade, error) {
	var items []models.Trade
	err := db.Model(&models.Trade{}).
		Where("market_id = ?", strings.TrimSpace(marketID)).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTradesByUser(ctx context.Context, userID string) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Trade
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTradesByMarket(ctx context.Context, marketID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("market_id = ?", strings.TrimSpace(marketID)).
		Count(&total).Error
	return total, err
}

func (s *Store) MarketVolume(ctx context.Context, marketID string) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	var raw *string
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Select("SUM(cost)").
		Where("market_id = ?", strings.TrimSpace(marketID)).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

// --- balances ---------------------------------------------------------------

func (s *Store) GetBalance(ctx context.Context, userID string) (*models.UserBalance, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.UserBalance
	err := s.db.WithContext(ctx).Where("user_id = ?", strings.TrimSpace(userID)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetOrCreateBalanceForUpdateTx(ctx context.Context, tx *gorm.DB, userID string, starting decimal.Decimal) (*models.UserBalance, error) {
	if tx == nil {
		return nil, nil
	}
	userID = strings.TrimSpace(userID)
	var item models.UserBalance
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&item).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	item = models.UserBalance{
		UserID:           userID,
		AvailableCredits: starting,
		LockedCredits:    decimal.Zero,
	}
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveBalanceTx(ctx context.Context, tx *gorm.DB, item *models.UserBalance) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

// CreditBalanceTx upserts an increment to a user's available credits. Used by
// payout and refund, where the row may not exist yet for users created
// implicitly by the system trade path.
func (s *Store) CreditBalanceTx(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || !amount.IsPositive() {
		return nil
	}
	item := models.UserBalance{
		UserID:           userID,
		AvailableCredits: amount,
		LockedCredits:    decimal.Zero,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"available_credits": gorm.Expr("user_balances.available_credits + EXCLUDED.available_credits"),
			"updated_at":        time.Now().UTC(),
		}),
	}).Create(&item).Error
}

// --- stats ------------------------------------------------------------------

func (s *Store) GetStats(ctx context.Context, userID string) (*models.UserMarketStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.UserMarketStats
	err := s.db.WithContext(ctx).Where("user_id = ?", strings.TrimSpace(userID)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// BumpTradeStatsTx increments trade count and volume in the trade transaction.
// Win/loss counters are owned by the resolution path and untouched here.
func (s *Store) BumpTradeStatsTx(ctx context.Context, tx *gorm.DB, userID string, volume decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	item := models.UserMarketStats{
		UserID:      userID,
		TotalTrades: 1,
		TotalVolume: volume,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_trades": gorm.Expr("user_market_stats.total_trades + 1"),
			"total_volume": gorm.Expr("user_market_stats.total_volume + EXCLUDED.total_volume"),
			"updated_at":   time.Now().UTC(),
		}),
	}).Create(&item).Error
}

func (s *Store) GetOrCreateStatsForUpdateTx(ctx context.Context, tx *gorm.DB, userID string) (*models.UserMarketStats, error) {
	if tx == nil {
		return nil, nil
	}
	userID = strings.TrimSpace(userID)
	var item models.UserMarketStats
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&item).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	item = models.UserMarketStats{
		UserID:        userID,
		TotalVolume:   decimal.Zero,
		AccuracyRate:  decimal.Zero,
		CreditsEarned: decimal.Zero,
	}
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveStatsTx(ctx context.Context, tx *gorm.DB, item *models.UserMarketStats) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) Leaderboard(ctx context.Context, since time.Time, limit int) ([]models.UserMarketStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 20)
	query := s.db.WithContext(ctx).
		Model(&models.UserMarketStats{}).
		Where("user_id <> ?", models.SystemUserID).
		Where("winning_trades + losing_trades > 0")
	if !since.IsZero() {
		query = query.Where("updated_at >= ?", since)
	}
	var items []models.UserMarketStats
	err := query.
		Order("accuracy_rate desc, credits_earned desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- votes ------------------------------------------------------------------

func (s *Store) UpsertVote(ctx context.Context, item *models.MarketVote) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "market_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"outcome",
			"confidence",
			"reasoning",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListVotesByMarket(ctx context.Context, marketID string) ([]models.MarketVote, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.MarketVote
	err := s.db.WithContext(ctx).
		Model(&models.MarketVote{}).
		Where("market_id = ?", strings.TrimSpace(marketID)).
		Order("updated_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) TallyVotes(ctx context.Context, marketID string) (repository.VoteTally, error) {
	var tally repository.VoteTally
	if s == nil || s.db == nil {
		return tally, nil
	}
	type row struct {
		Outcome string
		Count   int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.MarketVote{}).
		Select("outcome, COUNT(*) AS count").
		Where("market_id = ?", strings.TrimSpace(marketID)).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return tally, err
	}
	for _, r := range rows {
		switch r.Outcome {
		case models.OutcomeYes:
			tally.Yes = r.Count
		case models.OutcomeNo:
			tally.No = r.Count
		}
		tally.Total += r.Count
	}
	return tally, nil
}

// --- seed attempts ----------------------------------------------------------

func (s *Store) InsertSeedAttempt(ctx context.Context, item *models.SeedAttempt) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) CountExecutedSeedAttempts(ctx context.Context, marketID string, kind string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.SeedAttempt{}).
		Where("market_id = ?", strings.TrimSpace(marketID)).
		Where("kind = ?", kind).
		Where("status = ?", models.SeedStatusExecuted).
		Count(&total).Error
	return total, err
}

func (s *Store) ListSeedAttempts(ctx context.Context, marketID string) ([]models.SeedAttempt, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SeedAttempt
	err := s.db.WithContext(ctx).
		Model(&models.SeedAttempt{}).
		Where("market_id = ?", strings.TrimSpace(marketID)).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}
