package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/punchamoorthee/bazaarops/internal/draw"
	"github.com/punchamoorthee/bazaarops/internal/models"
	"github.com/punchamoorthee/bazaarops/internal/store"
)

// DrawStatus reports the caller's gates, bonus balance, and the day's
// sacrificial candidates.
func (s *Service) DrawStatus(ctx context.Context, userID string) (models.DrawStatus, error) {
	q := s.store.Pool()
	day := s.day()

	dailyUsed, err := store.DailyDrawUsed(ctx, q, userID, day)
	if err != nil {
		return models.DrawStatus{}, err
	}
	sacUsed, err := store.SacrificialDrawUsed(ctx, q, userID, day)
	if err != nil {
		return models.DrawStatus{}, err
	}
	bonus, err := store.BonusBalance(ctx, q, userID)
	if err != nil {
		return models.DrawStatus{}, err
	}
	owned, err := store.UserInventory(ctx, q, userID)
	if err != nil {
		return models.DrawStatus{}, err
	}

	eligible := draw.EligibleCopies(owned)
	var total int
	for _, item := range owned {
		total += item.Count
	}

	status := models.DrawStatus{
		CanDailyDraw:       !dailyUsed,
		CanSacrificialDraw: !sacUsed && eligible >= draw.SacrificialCount,
		BonusAvailable:     bonus,
		EligibleCount:      eligible,
		TotalCards:         total,
	}
	if status.CanSacrificialDraw {
		status.SacrificialCards = draw.SelectSacrifices(userID, day, owned)
	}
	return status, nil
}

// DailyDraw consumes the caller's daily gate and draws their cards.
func (s *Service) DailyDraw(ctx context.Context, userID string) (models.DrawResult, error) {
	var result models.DrawResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockUsers(ctx, tx, userID); err != nil {
			return err
		}
		if err := store.ReserveDailyDraw(ctx, tx, userID, s.day()); err != nil {
			return err
		}
		var err error
		result, err = s.performDraw(ctx, tx, userID, s.dailyCount)
		return err
	})
	if err != nil {
		return models.DrawResult{}, err
	}
	zap.L().Info("daily draw completed",
		zap.String("user_id", userID),
		zap.Int("cards", len(result.Cards)),
		zap.Int("upgrades", len(result.Upgrades)))
	return result, nil
}

// BonusDraw spends one bonus draw from the caller's balance.
func (s *Service) BonusDraw(ctx context.Context, userID string) (models.DrawResult, error) {
	var result models.DrawResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockUsers(ctx, tx, userID); err != nil {
			return err
		}
		if err := store.ConsumeBonus(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		result, err = s.performDraw(ctx, tx, userID, s.dailyCount)
		return err
	})
	if err != nil {
		return models.DrawResult{}, err
	}
	zap.L().Info("bonus draw completed",
		zap.String("user_id", userID),
		zap.Int("cards", len(result.Cards)))
	return result, nil
}

// SacrificialPreview returns the day's deterministic candidates without
// touching any state.
func (s *Service) SacrificialPreview(ctx context.Context, userID string) ([]models.CardRef, error) {
	owned, err := store.UserInventory(ctx, s.store.Pool(), userID)
	if err != nil {
		return nil, err
	}
	if eligible := draw.EligibleCopies(owned); eligible < draw.SacrificialCount {
		return nil, fmt.Errorf("%w: need at least %d non-full cards, have %d",
			models.ErrValidation, draw.SacrificialCount, eligible)
	}
	return draw.SelectSacrifices(userID, s.day(), owned), nil
}

// SacrificialDraw burns the day's candidate cards and draws replacements.
// The sacrifice, the draw, and any consolidations commit atomically.
func (s *Service) SacrificialDraw(ctx context.Context, userID string) (models.DrawResult, error) {
	var result models.DrawResult
	day := s.day()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockUsers(ctx, tx, userID); err != nil {
			return err
		}

		owned, err := store.UserInventory(ctx, tx, userID)
		if err != nil {
			return err
		}
		if eligible := draw.EligibleCopies(owned); eligible < draw.SacrificialCount {
			return fmt.Errorf("%w: need at least %d non-full cards, have %d",
				models.ErrValidation, draw.SacrificialCount, eligible)
		}
		if err := store.ReserveSacrificialDraw(ctx, tx, userID, day); err != nil {
			return err
		}

		sacrifices := draw.SelectSacrifices(userID, day, owned)
		deltas := make([]models.InventoryDelta, 0, len(sacrifices))
		for _, ref := range sacrifices {
			deltas = append(deltas, models.InventoryDelta{Category: ref.Category, Name: ref.Name, Delta: -1})
		}
		if err := store.ApplyInventory(ctx, tx, userID, deltas); err != nil {
			return err
		}

		result, err = s.performDraw(ctx, tx, userID, s.dailyCount)
		if err != nil {
			return err
		}
		result.Sacrificed = sacrifices
		return nil
	})
	if err != nil {
		return models.DrawResult{}, err
	}
	zap.L().Info("sacrificial draw completed",
		zap.String("user_id", userID),
		zap.Int("sacrificed", len(result.Sacrificed)),
		zap.Int("cards", len(result.Cards)))
	return result, nil
}

// performDraw samples n cards, credits them, consolidates any stacks of
// five, and records discoveries. Runs inside the caller's transaction
// with the user's lock already held.
func (s *Service) performDraw(ctx context.Context, tx pgx.Tx, userID string, n int) (models.DrawResult, error) {
	cards := s.drawCards(n)
	if len(cards) < n {
		return models.DrawResult{}, fmt.Errorf("catalog produced %d cards, want %d", len(cards), n)
	}

	deltas := make([]models.InventoryDelta, 0, len(cards))
	for _, card := range cards {
		deltas = append(deltas, models.InventoryDelta{Category: card.Category, Name: card.Name, Delta: 1})
	}
	if err := store.ApplyInventory(ctx, tx, userID, deltas); err != nil {
		return models.DrawResult{}, err
	}

	// Consolidate the touched cards: five identical base copies mint one
	// full variant, repeatedly.
	affected := uniqueRefs(cards)
	items := make([]models.InventoryItem, 0, len(affected))
	for _, ref := range affected {
		count, err := store.CardCount(ctx, tx, userID, ref)
		if err != nil {
			return models.DrawResult{}, err
		}
		items = append(items, models.InventoryItem{Category: ref.Category, Name: ref.Name, Count: count})
	}
	upgrades, upgradeDeltas := draw.PlanUpgrades(s.catalog, items)
	if len(upgradeDeltas) > 0 {
		if err := store.ApplyInventory(ctx, tx, userID, upgradeDeltas); err != nil {
			return models.DrawResult{}, err
		}
	}

	// Record first-ever acquisitions, minted full variants included.
	acquired := affected
	for _, ev := range upgrades {
		acquired = append(acquired, models.CardRef{Category: ev.Category, Name: ev.Name})
	}
	var discoveries []models.Discovery
	seen := make(map[models.CardRef]bool)
	for _, ref := range acquired {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		d, isNew, err := store.RecordDiscovery(ctx, tx, ref, userID)
		if err != nil {
			return models.DrawResult{}, err
		}
		if isNew {
			discoveries = append(discoveries, d)
		}
	}

	return models.DrawResult{Cards: cards, Upgrades: upgrades, Discoveries: discoveries}, nil
}

// GrantBonus credits bonus draws to a user and returns the new balance.
// Admin-only surface.
func (s *Service) GrantBonus(ctx context.Context, userID string, amount int) (int, error) {
	if userID == "" || amount <= 0 {
		return 0, fmt.Errorf("%w: grant needs a user and a positive amount", models.ErrValidation)
	}
	balance, err := store.GrantBonus(ctx, s.store.Pool(), userID, amount)
	if err != nil {
		return 0, err
	}
	zap.L().Info("bonus draws granted",
		zap.String("user_id", userID), zap.Int("amount", amount), zap.Int("balance", balance))
	return balance, nil
}

func uniqueRefs(cards []models.Card) []models.CardRef {
	var refs []models.CardRef
	seen := make(map[models.CardRef]bool)
	for _, card := range cards {
		ref := card.Ref()
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
