package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/bazaarops/internal/models"
)

// ApplyVault mutates a user's vault with the same all-or-nothing and
// non-negative discipline as ApplyInventory. Caller holds the user lock.
func ApplyVault(ctx context.Context, q DBTX, userID string, deltas []models.InventoryDelta) error {
	for _, d := range deltas {
		var count int64
		err := q.QueryRow(ctx, `
			INSERT INTO vault_entries (user_id, category, name, count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, category, name)
			DO UPDATE SET count = vault_entries.count + EXCLUDED.count
			WHERE vault_entries.count + EXCLUDED.count >= 0
			RETURNING count`,
			userID, d.Category, d.Name, d.Delta,
		).Scan(&count)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isCheckViolation(err) {
				return fmt.Errorf("%w: vault %s/%s for user %s", models.ErrNegativeCount, d.Category, d.Name, userID)
			}
			return fmt.Errorf("vault apply failed: %w", err)
		}
	}

	if _, err := q.Exec(ctx, "DELETE FROM vault_entries WHERE user_id = $1 AND count = 0", userID); err != nil {
		return fmt.Errorf("vault cleanup failed: %w", err)
	}
	return nil
}

// VaultItems lists a user's staged cards.
func VaultItems(ctx context.Context, q DBTX, userID string) ([]models.VaultItem, error) {
	rows, err := q.Query(ctx, `
		SELECT category, name, count FROM vault_entries
		WHERE user_id = $1 AND count > 0
		ORDER BY category, name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("vault query failed: %w", err)
	}
	defer rows.Close()

	var items []models.VaultItem
	for rows.Next() {
		var item models.VaultItem
		if err := rows.Scan(&item.Category, &item.Name, &item.Count); err != nil {
			return nil, fmt.Errorf("vault scan failed: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// VaultCount returns how many copies of one card a user has staged.
func VaultCount(ctx context.Context, q DBTX, userID string, ref models.CardRef) (int, error) {
	var count int
	err := q.QueryRow(ctx,
		"SELECT count FROM vault_entries WHERE user_id = $1 AND category = $2 AND name = $3",
		userID, ref.Category, ref.Name,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("vault count query failed: %w", err)
	}
	return count, nil
}
