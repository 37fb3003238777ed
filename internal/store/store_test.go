package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/bazaarops/internal/models"
)

// These tests exercise the real SQL paths and need a database. Point
// TEST_DATABASE_URL at a throwaway Postgres to run them; they use
// unique user ids so repeated runs don't collide.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	st, err := NewStore(context.Background(), url)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("initializing schema: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func testID(t *testing.T, label string) string {
	t.Helper()
	return fmt.Sprintf("%s-%s-%d", label, t.Name(), time.Now().UnixNano())
}

func TestApplyInventoryAbortsAllLegsOnUnderflow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := testID(t, "user")

	err := ApplyInventory(ctx, st.Pool(), user, []models.InventoryDelta{
		{Category: "common", Name: "Sparrow", Delta: 3},
	})
	if err != nil {
		t.Fatalf("initial credit: %v", err)
	}

	err = st.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return ApplyInventory(ctx, tx, user, []models.InventoryDelta{
			{Category: "common", Name: "Sparrow", Delta: 1},
			{Category: "common", Name: "Raven", Delta: -1},
		})
	})
	if !errors.Is(err, models.ErrNegativeCount) {
		t.Fatalf("underflow err = %v, want ErrNegativeCount", err)
	}

	count, err := CardCount(ctx, st.Pool(), user, models.CardRef{Category: "common", Name: "Sparrow"})
	if err != nil {
		t.Fatalf("count lookup: %v", err)
	}
	if count != 3 {
		t.Errorf("Sparrow count = %d after aborted apply, want 3", count)
	}
}

func TestApplyInventoryDropsZeroRows(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := testID(t, "user")
	ref := models.CardRef{Category: "common", Name: "Sparrow"}

	for _, delta := range []int{2, -2} {
		err := ApplyInventory(ctx, st.Pool(), user, []models.InventoryDelta{
			{Category: ref.Category, Name: ref.Name, Delta: delta},
		})
		if err != nil {
			t.Fatalf("apply %+d: %v", delta, err)
		}
	}

	items, err := UserInventory(ctx, st.Pool(), user)
	if err != nil {
		t.Fatalf("inventory lookup: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("inventory has %d rows after draining, want 0", len(items))
	}
}

func TestConcurrentReadModifyWriteSerializes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := testID(t, "user")
	ref := models.CardRef{Category: "common", Name: "Sparrow"}

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- st.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
				if err := LockUsers(ctx, tx, user); err != nil {
					return err
				}
				if _, err := CardCount(ctx, tx, user, ref); err != nil {
					return err
				}
				return ApplyInventory(ctx, tx, user, []models.InventoryDelta{
					{Category: ref.Category, Name: ref.Name, Delta: 1},
				})
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent apply: %v", err)
		}
	}

	count, err := CardCount(ctx, st.Pool(), user, ref)
	if err != nil {
		t.Fatalf("count lookup: %v", err)
	}
	if count != writers {
		t.Errorf("count = %d after %d concurrent increments, want %d", count, writers, writers)
	}
}

func TestDiscoveryRecordedExactlyOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.CardRef{Category: "rare", Name: testID(t, "card")}

	const racers = 10
	var wg sync.WaitGroup
	type result struct {
		disc  models.Discovery
		isNew bool
		err   error
	}
	results := make(chan result, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			disc, isNew, err := RecordDiscovery(ctx, st.Pool(), ref, fmt.Sprintf("racer-%d", n))
			results <- result{disc, isNew, err}
		}(i)
	}
	wg.Wait()
	close(results)

	var firsts int
	var discoverers = map[string]bool{}
	for res := range results {
		if res.err != nil {
			t.Fatalf("record discovery: %v", res.err)
		}
		if res.isNew {
			firsts++
		}
		discoverers[res.disc.DiscovererID] = true
	}
	if firsts != 1 {
		t.Errorf("isNew returned true %d times, want exactly 1", firsts)
	}
	if len(discoverers) != 1 {
		t.Errorf("racers observed %d distinct discoverers, want 1", len(discoverers))
	}
}

func TestReserveDailyDrawOncePerDay(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := testID(t, "user")

	if err := ReserveDailyDraw(ctx, st.Pool(), user, "2026-09-01"); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	err := ReserveDailyDraw(ctx, st.Pool(), user, "2026-09-01")
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("second reserve err = %v, want ErrRateLimited", err)
	}
	if err := ReserveDailyDraw(ctx, st.Pool(), user, "2026-09-02"); err != nil {
		t.Errorf("next-day reserve: %v", err)
	}
}

func TestConsumeTradeQuotaHonorsWeeklyCap(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := testID(t, "user")
	const limit = 3

	for i := 0; i < limit; i++ {
		if err := ConsumeTradeQuota(ctx, st.Pool(), user, "2026-W36", limit); err != nil {
			t.Fatalf("consume %d: %v", i+1, err)
		}
	}
	err := ConsumeTradeQuota(ctx, st.Pool(), user, "2026-W36", limit)
	if !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("over-cap consume err = %v, want ErrQuotaExceeded", err)
	}
	if err := ConsumeTradeQuota(ctx, st.Pool(), user, "2026-W37", limit); err != nil {
		t.Errorf("next-week consume: %v", err)
	}
}

func TestConsumeTradeQuotaZeroLimitBlocksFirstTrade(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := testID(t, "user")

	err := ConsumeTradeQuota(ctx, st.Pool(), user, "2026-W36", 0)
	if !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("zero-limit consume err = %v, want ErrQuotaExceeded", err)
	}
	used, err := TradesUsed(ctx, st.Pool(), user, "2026-W36")
	if err != nil {
		t.Fatalf("trades used lookup: %v", err)
	}
	if used != 0 {
		t.Errorf("trades_used = %d after blocked consume, want 0", used)
	}
}

func TestTradeTransitionIsCompareAndSwap(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	tr := models.TradeRequest{
		ID:            testID(t, "trade"),
		RequesterID:   testID(t, "req"),
		TargetID:      testID(t, "tgt"),
		OfferedCard:   models.CardRef{Category: "common", Name: "Sparrow"},
		RequestedCard: models.CardRef{Category: "rare", Name: "Phoenix"},
		Status:        models.TradePending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(24 * time.Hour),
	}
	if err := InsertTradeRequest(ctx, st.Pool(), tr); err != nil {
		t.Fatalf("insert trade: %v", err)
	}

	if err := TransitionTrade(ctx, st.Pool(), tr.ID, models.TradeAccepted, now); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	err := TransitionTrade(ctx, st.Pool(), tr.ID, models.TradeDeclined, now)
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second transition err = %v, want ErrConflict", err)
	}

	got, err := GetTradeRequest(ctx, st.Pool(), tr.ID)
	if err != nil {
		t.Fatalf("get trade: %v", err)
	}
	if got.Status != models.TradeAccepted {
		t.Errorf("status = %s, want accepted", got.Status)
	}
}

func TestExpireTradesMarksOverdueOnes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	tr := models.TradeRequest{
		ID:            testID(t, "trade"),
		RequesterID:   testID(t, "req"),
		TargetID:      testID(t, "tgt"),
		OfferedCard:   models.CardRef{Category: "common", Name: "Sparrow"},
		RequestedCard: models.CardRef{Category: "rare", Name: "Phoenix"},
		Status:        models.TradePending,
		CreatedAt:     now.Add(-25 * time.Hour),
		ExpiresAt:     now.Add(-time.Hour),
	}
	if err := InsertTradeRequest(ctx, st.Pool(), tr); err != nil {
		t.Fatalf("insert trade: %v", err)
	}

	if _, err := ExpireTrades(ctx, st.Pool(), now); err != nil {
		t.Fatalf("expire sweep: %v", err)
	}

	got, err := GetTradeRequest(ctx, st.Pool(), tr.ID)
	if err != nil {
		t.Fatalf("get trade: %v", err)
	}
	if got.Status != models.TradeExpired {
		t.Fatalf("status = %s after sweep, want expired", got.Status)
	}

	err = TransitionTrade(ctx, st.Pool(), tr.ID, models.TradeAccepted, now)
	if !errors.Is(err, models.ErrConflict) {
		t.Errorf("accept after expiry err = %v, want ErrConflict", err)
	}
}

func TestVaultRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := testID(t, "user")
	ref := models.CardRef{Category: "common", Name: "Sparrow"}
	delta := func(d int) []models.InventoryDelta {
		return []models.InventoryDelta{{Category: ref.Category, Name: ref.Name, Delta: d}}
	}

	if err := ApplyVault(ctx, st.Pool(), user, delta(1)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	count, err := VaultCount(ctx, st.Pool(), user, ref)
	if err != nil {
		t.Fatalf("vault count: %v", err)
	}
	if count != 1 {
		t.Errorf("vault count = %d, want 1", count)
	}

	if err := ApplyVault(ctx, st.Pool(), user, delta(-1)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	err = ApplyVault(ctx, st.Pool(), user, delta(-1))
	if !errors.Is(err, models.ErrNegativeCount) {
		t.Errorf("empty withdraw err = %v, want ErrNegativeCount", err)
	}
}

func TestBonusBalanceLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := testID(t, "user")

	err := ConsumeBonus(ctx, st.Pool(), user)
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("consume with no balance err = %v, want ErrRateLimited", err)
	}

	balance, err := GrantBonus(ctx, st.Pool(), user, 2)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if balance != 2 {
		t.Errorf("balance after grant = %d, want 2", balance)
	}

	for i := 0; i < 2; i++ {
		if err := ConsumeBonus(ctx, st.Pool(), user); err != nil {
			t.Fatalf("consume %d: %v", i+1, err)
		}
	}
	err = ConsumeBonus(ctx, st.Pool(), user)
	if !errors.Is(err, models.ErrRateLimited) {
		t.Errorf("drained consume err = %v, want ErrRateLimited", err)
	}
}
