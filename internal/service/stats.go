package service

import (
	"context"

	"github.com/punchamoorthee/bazaarops/internal/draw"
	"github.com/punchamoorthee/bazaarops/internal/models"
	"github.com/punchamoorthee/bazaarops/internal/store"
)

// Inventory returns the caller's collection rows.
func (s *Service) Inventory(ctx context.Context, userID string) ([]models.InventoryItem, error) {
	items, err := store.UserInventory(ctx, s.store.Pool(), userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.InventoryItem{}
	}
	return items, nil
}

// Stats aggregates collection, discovery, and quota state for one user.
func (s *Service) Stats(ctx context.Context, userID string) (models.UserStats, error) {
	q := s.store.Pool()
	day := s.day()

	owned, err := store.UserInventory(ctx, q, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	discoveries, err := store.DiscoveriesByUser(ctx, q, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	tradesUsed, err := store.TradesUsed(ctx, q, userID, s.week())
	if err != nil {
		return models.UserStats{}, err
	}
	bonus, err := store.BonusBalance(ctx, q, userID)
	if err != nil {
		return models.UserStats{}, err
	}
	dailyUsed, err := store.DailyDrawUsed(ctx, q, userID, day)
	if err != nil {
		return models.UserStats{}, err
	}
	sacUsed, err := store.SacrificialDrawUsed(ctx, q, userID, day)
	if err != nil {
		return models.UserStats{}, err
	}

	var total int
	for _, item := range owned {
		total += item.Count
	}
	var completion float64
	if size := s.catalog.Size(); size > 0 {
		completion = float64(len(owned)) / float64(size) * 100
	}
	if discoveries == nil {
		discoveries = []models.Discovery{}
	}

	return models.UserStats{
		UserID:               userID,
		TotalCards:           total,
		UniqueCards:          len(owned),
		CompletionPercentage: completion,
		Discoveries:          discoveries,
		TradesUsedThisWeek:   tradesUsed,
		WeeklyTradeLimit:     s.weeklyLimit,
		BonusAvailable:       bonus,
		CanDailyDraw:         !dailyUsed,
		CanSacrificialDraw:   !sacUsed && draw.EligibleCopies(owned) >= draw.SacrificialCount,
	}, nil
}
