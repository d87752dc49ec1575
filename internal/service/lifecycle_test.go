package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"factmarket/internal/models"
	"factmarket/internal/repository"
)

// stubRepo overrides just the methods on the lifecycle and trading paths.
// The embedded nil interface panics on anything else, so a test reaching an
// unexpected repository method fails loudly.
type stubRepo struct {
	repository.Repository

	market  *models.Market
	trades  []models.Trade
	credits map[string]decimal.Decimal
	stats   map[string]*models.UserMarketStats
}

func newStubRepo(market *models.Market, trades []models.Trade) *stubRepo {
	return &stubRepo{
		market:  market,
		trades:  trades,
		credits: map[string]decimal.Decimal{},
		stats:   map[string]*models.UserMarketStats{},
	}
}

func (r *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *stubRepo) GetMarketForUpdateTx(ctx context.Context, tx *gorm.DB, id string) (*models.Market, error) {
	if r.market == nil || r.market.ID != id {
		return nil, nil
	}
	copied := *r.market
	return &copied, nil
}

func (r *stubRepo) SaveMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	r.market = item
	return nil
}

func (r *stubRepo) ListTradesByMarketTx(ctx context.Context, tx *gorm.DB, marketID string) ([]models.Trade, error) {
	return r.trades, nil
}

func (r *stubRepo) CreditBalanceTx(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal) error {
	r.credits[userID] = r.credits[userID].Add(amount)
	return nil
}

func (r *stubRepo) GetOrCreateStatsForUpdateTx(ctx context.Context, tx *gorm.DB, userID string) (*models.UserMarketStats, error) {
	if r.stats[userID] == nil {
		r.stats[userID] = &models.UserMarketStats{UserID: userID}
	}
	return r.stats[userID], nil
}

func (r *stubRepo) SaveStatsTx(ctx context.Context, tx *gorm.DB, item *models.UserMarketStats) error {
	r.stats[item.UserID] = item
	return nil
}

func (r *stubRepo) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	if r.market == nil || r.market.ID != id {
		return nil, nil
	}
	copied := *r.market
	return &copied, nil
}

func (r *stubRepo) MarketVolume(ctx context.Context, marketID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, trade := range r.trades {
		total = total.Add(trade.Cost)
	}
	return total, nil
}

func openMarket(id string) *models.Market {
	return &models.Market{
		ID:      id,
		PoolYes: d("1000"),
		PoolNo:  d("1000"),
		Status:  models.MarketStatusOpen,
	}
}

func newLifecycle(repo *stubRepo) *LifecycleService {
	return &LifecycleService{
		Repo:  repo,
		Stats: &StatsService{Repo: repo},
	}
}

func TestResolve_SecondCallDoesNotPayTwice(t *testing.T) {
	repo := newStubRepo(openMarket("m1"), []models.Trade{
		{UserID: "alice", Outcome: models.OutcomeYes, Shares: d("90.91"), Cost: d("100")},
	})
	svc := newLifecycle(repo)

	result, err := svc.Resolve(context.Background(), "m1", models.OutcomeYes, "oracle")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if result.PayoutsIssued != 1 || !result.TotalPaid.Equal(d("90.91")) {
		t.Fatalf("first resolve paid %d/%s, want 1/90.91", result.PayoutsIssued, result.TotalPaid)
	}
	if !repo.credits["alice"].Equal(d("90.91")) {
		t.Fatalf("alice credited %s, want 90.91", repo.credits["alice"])
	}
	if repo.market.Status != models.MarketStatusResolved {
		t.Fatalf("status=%s, want resolved", repo.market.Status)
	}

	_, err = svc.Resolve(context.Background(), "m1", models.OutcomeYes, "oracle")
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second resolve err=%v, want ErrAlreadyResolved", err)
	}
	if !repo.credits["alice"].Equal(d("90.91")) {
		t.Fatalf("alice credited %s after second resolve, payout ran twice", repo.credits["alice"])
	}
}

func TestCancel_AfterResolveRejected(t *testing.T) {
	repo := newStubRepo(openMarket("m1"), nil)
	svc := newLifecycle(repo)

	if _, err := svc.Resolve(context.Background(), "m1", models.OutcomeNo, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), "m1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel after resolve err=%v, want ErrInvalidTransition", err)
	}
	if repo.market.Status != models.MarketStatusResolved {
		t.Fatalf("status=%s, terminal state must not change", repo.market.Status)
	}
}

func TestResolve_AfterCancelRejected(t *testing.T) {
	repo := newStubRepo(openMarket("m1"), nil)
	svc := newLifecycle(repo)

	if _, err := svc.Cancel(context.Background(), "m1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "m1", models.OutcomeYes, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resolve after cancel err=%v, want ErrInvalidTransition", err)
	}
}

func TestCancel_RefundsAtCost(t *testing.T) {
	repo := newStubRepo(openMarket("m1"), []models.Trade{
		{UserID: "alice", Outcome: models.OutcomeYes, Shares: d("90.91"), Cost: d("100")},
		{UserID: "alice", Outcome: models.OutcomeNo, Shares: d("20"), Cost: d("25")},
		{UserID: "bob", Outcome: models.OutcomeNo, Shares: d("45"), Cost: d("50")},
	})
	svc := newLifecycle(repo)

	result, err := svc.Cancel(context.Background(), "m1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.RefundsIssued != 2 || !result.TotalRefunded.Equal(d("175")) {
		t.Fatalf("refunded %d/%s, want 2/175", result.RefundsIssued, result.TotalRefunded)
	}
	if !repo.credits["alice"].Equal(d("125")) || !repo.credits["bob"].Equal(d("50")) {
		t.Fatalf("refunds alice=%s bob=%s, want 125/50", repo.credits["alice"], repo.credits["bob"])
	}
	if repo.market.Status != models.MarketStatusCancelled {
		t.Fatalf("status=%s, want cancelled", repo.market.Status)
	}
}

func TestExecuteTrade_ClosedMarketsRejected(t *testing.T) {
	for _, status := range []string{models.MarketStatusResolved, models.MarketStatusCancelled} {
		market := openMarket("m1")
		market.Status = status
		repo := newStubRepo(market, nil)
		svc := &TradingService{Repo: repo}

		_, err := svc.ExecuteTrade(context.Background(), "alice", "m1", models.OutcomeYes, d("10"))
		if !errors.Is(err, ErrMarketClosed) {
			t.Fatalf("trade on %s market err=%v, want ErrMarketClosed", status, err)
		}
	}
}

func TestVolume_SumsTradeCosts(t *testing.T) {
	repo := newStubRepo(openMarket("m1"), []models.Trade{
		{UserID: "alice", Outcome: models.OutcomeYes, Cost: d("100")},
		{UserID: "bob", Outcome: models.OutcomeNo, Cost: d("50.50")},
	})
	svc := &TradingService{Repo: repo}

	volume, err := svc.Volume(context.Background(), "m1")
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	if !volume.Equal(d("150.50")) {
		t.Fatalf("volume=%s, want 150.50", volume)
	}

	if _, err := svc.Volume(context.Background(), "missing"); !errors.Is(err, ErrMarketNotFound) {
		t.Fatalf("volume of missing market err=%v, want ErrMarketNotFound", err)
	}
}
