package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/punchamoorthee/bazaarops/internal/models"
	"github.com/punchamoorthee/bazaarops/internal/store"
)

// Deposit stages one copy of a non-full card from the caller's
// collection into their vault. Ledger and vault legs commit together.
func (s *Service) Deposit(ctx context.Context, userID string, ref models.CardRef) error {
	if err := s.checkVaultCard(ref); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockUsers(ctx, tx, userID); err != nil {
			return err
		}
		count, err := store.CardCount(ctx, tx, userID, ref)
		if err != nil {
			return err
		}
		if count < 1 {
			return fmt.Errorf("%w: you do not own %s", models.ErrValidation, ref.Name)
		}
		if err := store.ApplyInventory(ctx, tx, userID, []models.InventoryDelta{
			{Category: ref.Category, Name: ref.Name, Delta: -1},
		}); err != nil {
			return err
		}
		return store.ApplyVault(ctx, tx, userID, []models.InventoryDelta{
			{Category: ref.Category, Name: ref.Name, Delta: 1},
		})
	})
	if err != nil {
		return err
	}
	zap.L().Info("vault deposit", zap.String("user_id", userID), zap.String("card", ref.Name))
	return nil
}

// Withdraw moves one staged copy back into the caller's collection.
func (s *Service) Withdraw(ctx context.Context, userID string, ref models.CardRef) error {
	if err := s.checkVaultCard(ref); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockUsers(ctx, tx, userID); err != nil {
			return err
		}
		count, err := store.VaultCount(ctx, tx, userID, ref)
		if err != nil {
			return err
		}
		if count < 1 {
			return fmt.Errorf("%w: %s is not in your vault", models.ErrValidation, ref.Name)
		}
		if err := store.ApplyVault(ctx, tx, userID, []models.InventoryDelta{
			{Category: ref.Category, Name: ref.Name, Delta: -1},
		}); err != nil {
			return err
		}
		return store.ApplyInventory(ctx, tx, userID, []models.InventoryDelta{
			{Category: ref.Category, Name: ref.Name, Delta: 1},
		})
	})
	if err != nil {
		return err
	}
	zap.L().Info("vault withdrawal", zap.String("user_id", userID), zap.String("card", ref.Name))
	return nil
}

// Vault lists the caller's staged cards.
func (s *Service) Vault(ctx context.Context, userID string) ([]models.VaultItem, error) {
	items, err := store.VaultItems(ctx, s.store.Pool(), userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.VaultItem{}
	}
	return items, nil
}

func (s *Service) checkVaultCard(ref models.CardRef) error {
	card, ok := s.catalog.Lookup(ref)
	if !ok {
		return fmt.Errorf("%w: unknown card %s/%s", models.ErrValidation, ref.Category, ref.Name)
	}
	if card.IsFull {
		return fmt.Errorf("%w: full cards cannot enter the vault", models.ErrValidation)
	}
	return nil
}
