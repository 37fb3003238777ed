package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/bazaarops/internal/models"
)

// ReserveDailyDraw claims the user's daily draw for the given day.
// A second reservation on the same day fails with ErrRateLimited.
func ReserveDailyDraw(ctx context.Context, q DBTX, userID, day string) error {
	return reserveDay(ctx, q, "daily_draws", userID, day)
}

// ReserveSacrificialDraw claims the user's sacrificial draw for the day.
func ReserveSacrificialDraw(ctx context.Context, q DBTX, userID, day string) error {
	return reserveDay(ctx, q, "sacrificial_draws", userID, day)
}

func reserveDay(ctx context.Context, q DBTX, table, userID, day string) error {
	tag, err := q.Exec(ctx,
		"INSERT INTO "+table+" (user_id, day) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, day)
	if err != nil {
		return fmt.Errorf("%s reservation failed: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s already used on %s", models.ErrRateLimited, table, day)
	}
	return nil
}

// DailyDrawUsed reports whether the daily draw is spent for the day.
func DailyDrawUsed(ctx context.Context, q DBTX, userID, day string) (bool, error) {
	return dayUsed(ctx, q, "daily_draws", userID, day)
}

// SacrificialDrawUsed reports whether the sacrificial draw is spent.
func SacrificialDrawUsed(ctx context.Context, q DBTX, userID, day string) (bool, error) {
	return dayUsed(ctx, q, "sacrificial_draws", userID, day)
}

func dayUsed(ctx context.Context, q DBTX, table, userID, day string) (bool, error) {
	var used bool
	err := q.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM "+table+" WHERE user_id = $1 AND day = $2)",
		userID, day,
	).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("%s lookup failed: %w", table, err)
	}
	return used, nil
}

// BonusBalance returns the user's remaining bonus draws.
func BonusBalance(ctx context.Context, q DBTX, userID string) (int, error) {
	var balance int
	err := q.QueryRow(ctx,
		"SELECT balance FROM bonus_draws WHERE user_id = $1", userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("bonus balance query failed: %w", err)
	}
	return balance, nil
}

// ConsumeBonus spends one bonus draw, failing with ErrRateLimited when
// the balance is empty.
func ConsumeBonus(ctx context.Context, q DBTX, userID string) error {
	tag, err := q.Exec(ctx,
		"UPDATE bonus_draws SET balance = balance - 1 WHERE user_id = $1 AND balance > 0",
		userID)
	if err != nil {
		return fmt.Errorf("bonus consume failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: no bonus draws available", models.ErrRateLimited)
	}
	return nil
}

// GrantBonus adds bonus draws to a user's balance and returns the new total.
func GrantBonus(ctx context.Context, q DBTX, userID string, amount int) (int, error) {
	var balance int
	err := q.QueryRow(ctx, `
		INSERT INTO bonus_draws (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = bonus_draws.balance + EXCLUDED.balance
		RETURNING balance`,
		userID, amount).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("bonus grant failed: %w", err)
	}
	return balance, nil
}

// TradesUsed returns a user's accepted-trade count for the week.
func TradesUsed(ctx context.Context, q DBTX, userID, week string) (int, error) {
	var used int
	err := q.QueryRow(ctx,
		"SELECT trades_used FROM weekly_trades WHERE user_id = $1 AND week = $2",
		userID, week,
	).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("weekly trades query failed: %w", err)
	}
	return used, nil
}

// ConsumeTradeQuota increments a user's weekly counter, failing with
// ErrQuotaExceeded at the cap. Run inside the accept transaction so a cap
// hit aborts the trade before any inventory moves.
func ConsumeTradeQuota(ctx context.Context, q DBTX, userID, week string, limit int) error {
	// The guarded upsert only protects the increment branch; a fresh
	// insert always writes 1, so a non-positive cap has to fail here.
	if limit < 1 {
		return fmt.Errorf("%w: user %s at weekly cap", models.ErrQuotaExceeded, userID)
	}
	var used int
	err := q.QueryRow(ctx, `
		INSERT INTO weekly_trades (user_id, week, trades_used) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, week)
		DO UPDATE SET trades_used = weekly_trades.trades_used + 1
		WHERE weekly_trades.trades_used < $3
		RETURNING trades_used`,
		userID, week, limit,
	).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: user %s at weekly cap", models.ErrQuotaExceeded, userID)
	}
	if err != nil {
		return fmt.Errorf("trade quota update failed: %w", err)
	}
	return nil
}
