package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/bazaarops/internal/models"
)

const tradeColumns = `id, requester_id, target_id,
	offered_category, offered_name, requested_category, requested_name,
	status, created_at, expires_at, resolved_at`

// InsertTradeRequest persists a new pending trade request.
func InsertTradeRequest(ctx context.Context, q DBTX, tr models.TradeRequest) error {
	_, err := q.Exec(ctx, `
		INSERT INTO trade_requests (id, requester_id, target_id,
			offered_category, offered_name, requested_category, requested_name,
			status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tr.ID, tr.RequesterID, tr.TargetID,
		tr.OfferedCard.Category, tr.OfferedCard.Name,
		tr.RequestedCard.Category, tr.RequestedCard.Name,
		tr.Status, tr.CreatedAt, tr.ExpiresAt)
	if err != nil {
		return fmt.Errorf("trade insert failed: %w", err)
	}
	return nil
}

// GetTradeRequest loads a trade request by id.
func GetTradeRequest(ctx context.Context, q DBTX, id string) (models.TradeRequest, error) {
	row := q.QueryRow(ctx, "SELECT "+tradeColumns+" FROM trade_requests WHERE id = $1", id)
	tr, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.TradeRequest{}, fmt.Errorf("%w: trade %s", models.ErrNotFound, id)
	}
	if err != nil {
		return models.TradeRequest{}, fmt.Errorf("trade lookup failed: %w", err)
	}
	return tr, nil
}

// TransitionTrade moves a request out of pending with a compare-and-swap
// on the status column. Whichever transition commits first wins; losers
// observe a non-pending row and fail with ErrConflict.
func TransitionTrade(ctx context.Context, q DBTX, id string, to models.TradeStatus, at time.Time) error {
	tag, err := q.Exec(ctx,
		"UPDATE trade_requests SET status = $1, resolved_at = $2 WHERE id = $3 AND status = $4",
		to, at, id, models.TradePending)
	if err != nil {
		return fmt.Errorf("trade transition failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: trade %s is no longer pending", models.ErrConflict, id)
	}
	return nil
}

// PendingTradesFor lists a user's pending, unexpired requests in either
// direction, newest first.
func PendingTradesFor(ctx context.Context, q DBTX, userID string, now time.Time) ([]models.TradeRequest, error) {
	rows, err := q.Query(ctx, `
		SELECT `+tradeColumns+` FROM trade_requests
		WHERE status = $1 AND expires_at > $2 AND (requester_id = $3 OR target_id = $3)
		ORDER BY created_at DESC`,
		models.TradePending, now, userID)
	if err != nil {
		return nil, fmt.Errorf("pending trades query failed: %w", err)
	}
	defer rows.Close()

	var out []models.TradeRequest
	for rows.Next() {
		tr, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("pending trades scan failed: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// ExpireTrades sweeps every pending request past its deadline to expired,
// honoring the same one-way-out-of-pending discipline as TransitionTrade.
func ExpireTrades(ctx context.Context, q DBTX, now time.Time) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE trade_requests SET status = $1, resolved_at = $2
		WHERE status = $3 AND expires_at < $2`,
		models.TradeExpired, now, models.TradePending)
	if err != nil {
		return 0, fmt.Errorf("trade expiry sweep failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTrade(row pgx.Row) (models.TradeRequest, error) {
	var tr models.TradeRequest
	err := row.Scan(&tr.ID, &tr.RequesterID, &tr.TargetID,
		&tr.OfferedCard.Category, &tr.OfferedCard.Name,
		&tr.RequestedCard.Category, &tr.RequestedCard.Name,
		&tr.Status, &tr.CreatedAt, &tr.ExpiresAt, &tr.ResolvedAt)
	return tr, err
}
