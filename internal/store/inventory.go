package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/punchamoorthee/bazaarops/internal/catalog"
	"github.com/punchamoorthee/bazaarops/internal/models"
)

// ApplyInventory applies a batch of count deltas to one user's ledger as
// an all-or-nothing unit. The caller must already hold the user's lock
// (LockUsers) inside the surrounding transaction; any delta that would
// drive a count below zero fails the whole batch with ErrNegativeCount.
func ApplyInventory(ctx context.Context, q DBTX, userID string, deltas []models.InventoryDelta) error {
	for _, d := range deltas {
		var count int64
		err := q.QueryRow(ctx, `
			INSERT INTO inventories (user_id, category, name, count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, category, name)
			DO UPDATE SET count = inventories.count + EXCLUDED.count
			WHERE inventories.count + EXCLUDED.count >= 0
			RETURNING count`,
			userID, d.Category, d.Name, d.Delta,
		).Scan(&count)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isCheckViolation(err) {
				return fmt.Errorf("%w: %s/%s for user %s", models.ErrNegativeCount, d.Category, d.Name, userID)
			}
			return fmt.Errorf("inventory apply failed: %w", err)
		}
	}

	// Drop exhausted rows so inventory reads stay clean.
	if _, err := q.Exec(ctx, "DELETE FROM inventories WHERE user_id = $1 AND count = 0", userID); err != nil {
		return fmt.Errorf("inventory cleanup failed: %w", err)
	}
	return nil
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// UserInventory returns every owned card row for a user, stable-ordered
// by category then name.
func UserInventory(ctx context.Context, q DBTX, userID string) ([]models.InventoryItem, error) {
	rows, err := q.Query(ctx, `
		SELECT category, name, count, first_acquired_at
		FROM inventories
		WHERE user_id = $1 AND count > 0
		ORDER BY category, name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("inventory query failed: %w", err)
	}
	defer rows.Close()

	var items []models.InventoryItem
	for rows.Next() {
		var item models.InventoryItem
		if err := rows.Scan(&item.Category, &item.Name, &item.Count, &item.FirstAcquiredAt); err != nil {
			return nil, fmt.Errorf("inventory scan failed: %w", err)
		}
		item.IsFull = strings.HasSuffix(item.Name, catalog.FullSuffix)
		items = append(items, item)
	}
	return items, rows.Err()
}

// CardCount returns how many copies of one card a user owns.
func CardCount(ctx context.Context, q DBTX, userID string, ref models.CardRef) (int, error) {
	var count int
	err := q.QueryRow(ctx,
		"SELECT count FROM inventories WHERE user_id = $1 AND category = $2 AND name = $3",
		userID, ref.Category, ref.Name,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("card count query failed: %w", err)
	}
	return count, nil
}

// Owner is one inventory row across the whole ledger, used by the bazaar
// availability index.
type Owner struct {
	UserID string
	Count  int
}

// CardOwners returns every owned card with its owners, for building the
// bazaar search view.
func CardOwners(ctx context.Context, q DBTX) (map[models.CardRef][]Owner, error) {
	rows, err := q.Query(ctx, `
		SELECT category, name, user_id, count
		FROM inventories
		WHERE count > 0
		ORDER BY category, name, user_id`)
	if err != nil {
		return nil, fmt.Errorf("owners query failed: %w", err)
	}
	defer rows.Close()

	owners := make(map[models.CardRef][]Owner)
	for rows.Next() {
		var ref models.CardRef
		var o Owner
		if err := rows.Scan(&ref.Category, &ref.Name, &o.UserID, &o.Count); err != nil {
			return nil, fmt.Errorf("owners scan failed: %w", err)
		}
		owners[ref] = append(owners[ref], o)
	}
	return owners, rows.Err()
}
