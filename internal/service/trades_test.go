package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/punchamoorthee/bazaarops/internal/catalog"
	"github.com/punchamoorthee/bazaarops/internal/models"
	"github.com/punchamoorthee/bazaarops/internal/store"
)

const tradeCatalogYAML = `
categories:
  - name: rare
    weight: "0.4"
  - name: common
    weight: "0.6"
cards:
  - category: rare
    name: Moon Hare
  - category: common
    name: Ember Lynx
  - category: common
    name: Raven
`

// newTradeTestService wires a real store behind the service. These tests
// need a database; point TEST_DATABASE_URL at a throwaway Postgres to
// run them.
func newTradeTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	st, err := store.NewStore(context.Background(), url)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("initializing schema: %v", err)
	}
	t.Cleanup(st.Close)

	cat, err := catalog.Parse([]byte(tradeCatalogYAML))
	if err != nil {
		t.Fatalf("parsing catalog fixture: %v", err)
	}
	return New(st, cat, Options{}), st
}

func tradeTestID(t *testing.T, label string) string {
	t.Helper()
	return fmt.Sprintf("%s-%s-%d", label, t.Name(), time.Now().UnixNano())
}

func giveCard(t *testing.T, st *store.Store, userID string, ref models.CardRef, n int) {
	t.Helper()
	err := store.ApplyInventory(context.Background(), st.Pool(), userID, []models.InventoryDelta{
		{Category: ref.Category, Name: ref.Name, Delta: n},
	})
	if err != nil {
		t.Fatalf("seeding %s for %s: %v", ref.Name, userID, err)
	}
}

func TestAcceptSwapsCardsAndSpendsQuota(t *testing.T) {
	svc, st := newTradeTestService(t)
	ctx := context.Background()

	requester := tradeTestID(t, "req")
	target := tradeTestID(t, "tgt")
	offered := models.CardRef{Category: "common", Name: "Ember Lynx"}
	requested := models.CardRef{Category: "rare", Name: "Moon Hare"}
	giveCard(t, st, requester, offered, 1)
	giveCard(t, st, target, requested, 1)

	tr, err := svc.Propose(ctx, requester, models.ProposeRequest{
		TargetID:          target,
		OfferedCategory:   offered.Category,
		OfferedName:       offered.Name,
		RequestedCategory: requested.Category,
		RequestedName:     requested.Name,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	accepted, err := svc.Accept(ctx, target, tr.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.TradeAccepted {
		t.Errorf("status = %s, want accepted", accepted.Status)
	}
	if accepted.ResolvedAt == nil {
		t.Error("accepted trade has no resolved_at")
	}

	// Both sides hold the other's card and nothing else.
	counts := []struct {
		user string
		ref  models.CardRef
		want int
	}{
		{requester, requested, 1},
		{requester, offered, 0},
		{target, offered, 1},
		{target, requested, 0},
	}
	for _, c := range counts {
		got, err := store.CardCount(ctx, st.Pool(), c.user, c.ref)
		if err != nil {
			t.Fatalf("count %s for %s: %v", c.ref.Name, c.user, err)
		}
		if got != c.want {
			t.Errorf("%s holds %d of %s, want %d", c.user, got, c.ref.Name, c.want)
		}
	}

	// Both weekly counters spent exactly one trade.
	week := svc.week()
	for _, user := range []string{requester, target} {
		used, err := store.TradesUsed(ctx, st.Pool(), user, week)
		if err != nil {
			t.Fatalf("trades used for %s: %v", user, err)
		}
		if used != 1 {
			t.Errorf("trades_used for %s = %d, want 1", user, used)
		}
	}

	// The request is terminal now: a second accept must lose the CAS.
	if _, err := svc.Accept(ctx, target, tr.ID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second accept err = %v, want ErrConflict", err)
	}
}

func TestAcceptParksTradeWhenCardIsGone(t *testing.T) {
	svc, st := newTradeTestService(t)
	ctx := context.Background()

	requester := tradeTestID(t, "req")
	target := tradeTestID(t, "tgt")
	offered := models.CardRef{Category: "common", Name: "Ember Lynx"}
	requested := models.CardRef{Category: "rare", Name: "Moon Hare"}
	giveCard(t, st, requester, offered, 1)
	giveCard(t, st, target, requested, 1)

	tr, err := svc.Propose(ctx, requester, models.ProposeRequest{
		TargetID:          target,
		OfferedCategory:   offered.Category,
		OfferedName:       offered.Name,
		RequestedCategory: requested.Category,
		RequestedName:     requested.Name,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	// Requester loses the offered card between propose and accept.
	giveCard(t, st, requester, offered, -1)

	if _, err := svc.Accept(ctx, target, tr.ID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("accept of unfulfillable trade err = %v, want ErrConflict", err)
	}

	got, err := store.GetTradeRequest(ctx, st.Pool(), tr.ID)
	if err != nil {
		t.Fatalf("get trade: %v", err)
	}
	if got.Status != models.TradeDeclined {
		t.Errorf("status = %s after failed re-validation, want declined", got.Status)
	}

	// Nothing moved and no quota was spent.
	count, err := store.CardCount(ctx, st.Pool(), target, requested)
	if err != nil {
		t.Fatalf("count lookup: %v", err)
	}
	if count != 1 {
		t.Errorf("target holds %d of %s, want 1", count, requested.Name)
	}
	used, err := store.TradesUsed(ctx, st.Pool(), target, svc.week())
	if err != nil {
		t.Fatalf("trades used: %v", err)
	}
	if used != 0 {
		t.Errorf("trades_used = %d after aborted accept, want 0", used)
	}
}

func TestProposeBlockedAtWeeklyCap(t *testing.T) {
	svc, st := newTradeTestService(t)
	ctx := context.Background()

	requester := tradeTestID(t, "req")
	target := tradeTestID(t, "tgt")
	offered := models.CardRef{Category: "common", Name: "Ember Lynx"}
	requested := models.CardRef{Category: "rare", Name: "Moon Hare"}
	giveCard(t, st, requester, offered, 1)
	giveCard(t, st, target, requested, 1)

	week := svc.week()
	for i := 0; i < svc.WeeklyTradeLimit(); i++ {
		if err := store.ConsumeTradeQuota(ctx, st.Pool(), requester, week, svc.WeeklyTradeLimit()); err != nil {
			t.Fatalf("spending quota %d: %v", i+1, err)
		}
	}

	_, err := svc.Propose(ctx, requester, models.ProposeRequest{
		TargetID:          target,
		OfferedCategory:   offered.Category,
		OfferedName:       offered.Name,
		RequestedCategory: requested.Category,
		RequestedName:     requested.Name,
	})
	if !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("propose at cap err = %v, want ErrQuotaExceeded", err)
	}
}
