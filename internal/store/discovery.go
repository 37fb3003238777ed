package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/bazaarops/internal/models"
)

// RecordDiscovery atomically creates the first-ever-owner record for a
// card if none exists. Exactly one of two concurrent first acquisitions
// wins the insert; the loser observes the winner's record.
func RecordDiscovery(ctx context.Context, q DBTX, ref models.CardRef, userID string) (models.Discovery, bool, error) {
	d := models.Discovery{Category: ref.Category, Name: ref.Name, DiscovererID: userID}
	err := q.QueryRow(ctx, `
		INSERT INTO discoveries (category, name, discoverer_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (category, name) DO NOTHING
		RETURNING discovery_index, created_at`,
		ref.Category, ref.Name, userID,
	).Scan(&d.Index, &d.CreatedAt)
	if err == nil {
		return d, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Discovery{}, false, fmt.Errorf("discovery insert failed: %w", err)
	}

	// Lost the race or already discovered: report the existing record.
	err = q.QueryRow(ctx, `
		SELECT discoverer_id, discovery_index, created_at
		FROM discoveries WHERE category = $1 AND name = $2`,
		ref.Category, ref.Name,
	).Scan(&d.DiscovererID, &d.Index, &d.CreatedAt)
	if err != nil {
		return models.Discovery{}, false, fmt.Errorf("discovery lookup failed: %w", err)
	}
	return d, false, nil
}

// DiscoveriesByUser lists the cards a user discovered first, oldest first.
func DiscoveriesByUser(ctx context.Context, q DBTX, userID string) ([]models.Discovery, error) {
	rows, err := q.Query(ctx, `
		SELECT category, name, discoverer_id, discovery_index, created_at
		FROM discoveries
		WHERE discoverer_id = $1
		ORDER BY discovery_index`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("discoveries query failed: %w", err)
	}
	defer rows.Close()

	var out []models.Discovery
	for rows.Next() {
		var d models.Discovery
		if err := rows.Scan(&d.Category, &d.Name, &d.DiscovererID, &d.Index, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("discoveries scan failed: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DiscoveredSet returns every discovered card. The bazaar only surfaces
// cards somebody has already found.
func DiscoveredSet(ctx context.Context, q DBTX) (map[models.CardRef]bool, error) {
	rows, err := q.Query(ctx, "SELECT category, name FROM discoveries")
	if err != nil {
		return nil, fmt.Errorf("discovered set query failed: %w", err)
	}
	defer rows.Close()

	set := make(map[models.CardRef]bool)
	for rows.Next() {
		var ref models.CardRef
		if err := rows.Scan(&ref.Category, &ref.Name); err != nil {
			return nil, fmt.Errorf("discovered set scan failed: %w", err)
		}
		set[ref] = true
	}
	return set, rows.Err()
}
