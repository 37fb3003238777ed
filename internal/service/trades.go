package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/punchamoorthee/bazaarops/internal/models"
	"github.com/punchamoorthee/bazaarops/internal/store"
)

// errRevalidation aborts an accept transaction when a traded card went
// missing between propose and accept. The request is then moved to a
// terminal state outside the rolled-back transaction.
var errRevalidation = errors.New("trade revalidation failed")

// Propose creates a pending trade request from the caller to the target.
func (s *Service) Propose(ctx context.Context, requesterID string, req models.ProposeRequest) (models.TradeRequest, error) {
	if requesterID == req.TargetID {
		return models.TradeRequest{}, fmt.Errorf("%w: cannot trade with yourself", models.ErrValidation)
	}
	if req.TargetID == "" {
		return models.TradeRequest{}, fmt.Errorf("%w: target required", models.ErrValidation)
	}

	offered := models.CardRef{Category: req.OfferedCategory, Name: req.OfferedName}
	requested := models.CardRef{Category: req.RequestedCategory, Name: req.RequestedName}
	for _, ref := range []models.CardRef{offered, requested} {
		card, ok := s.catalog.Lookup(ref)
		if !ok {
			return models.TradeRequest{}, fmt.Errorf("%w: unknown card %s/%s", models.ErrValidation, ref.Category, ref.Name)
		}
		if card.IsFull {
			return models.TradeRequest{}, fmt.Errorf("%w: full cards cannot be traded", models.ErrValidation)
		}
	}

	q := s.store.Pool()
	offeredCount, err := store.CardCount(ctx, q, requesterID, offered)
	if err != nil {
		return models.TradeRequest{}, err
	}
	if offeredCount < 1 {
		return models.TradeRequest{}, fmt.Errorf("%w: you do not own %s", models.ErrValidation, offered.Name)
	}
	requestedCount, err := store.CardCount(ctx, q, req.TargetID, requested)
	if err != nil {
		return models.TradeRequest{}, err
	}
	if requestedCount < 1 {
		return models.TradeRequest{}, fmt.Errorf("%w: target does not own %s", models.ErrValidation, requested.Name)
	}

	// Advisory only; the accept transaction re-checks and enforces the cap
	// for both parties.
	used, err := store.TradesUsed(ctx, q, requesterID, s.week())
	if err != nil {
		return models.TradeRequest{}, err
	}
	if used >= s.weeklyLimit {
		return models.TradeRequest{}, fmt.Errorf("%w: weekly trade limit reached", models.ErrQuotaExceeded)
	}

	now := s.now()
	tr := models.TradeRequest{
		ID:            newTradeID(),
		RequesterID:   requesterID,
		TargetID:      req.TargetID,
		OfferedCard:   offered,
		RequestedCard: requested,
		Status:        models.TradePending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.tradeTTL),
	}
	if err := store.InsertTradeRequest(ctx, q, tr); err != nil {
		return models.TradeRequest{}, err
	}
	zap.L().Info("trade proposed",
		zap.String("trade_id", tr.ID),
		zap.String("requester_id", requesterID),
		zap.String("target_id", req.TargetID))
	return tr, nil
}

// Accept resolves a pending trade: both cards are re-validated, both
// weekly quotas consumed, and the swap applied, all in one transaction.
// The status flip is a compare-and-swap, so a concurrent cancel or sweep
// wins or loses cleanly.
func (s *Service) Accept(ctx context.Context, callerID, tradeID string) (models.TradeRequest, error) {
	var accepted models.TradeRequest
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tr, err := store.GetTradeRequest(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if tr.Status != models.TradePending {
			return fmt.Errorf("%w: trade %s is %s", models.ErrConflict, tradeID, tr.Status)
		}
		if tr.TargetID != callerID {
			return fmt.Errorf("%w: only the trade target can accept", models.ErrValidation)
		}
		now := s.now()
		if tr.ExpiresAt.Before(now) {
			return fmt.Errorf("%w: trade %s has expired", models.ErrConflict, tradeID)
		}

		if err := store.LockUsers(ctx, tx, tr.RequesterID, tr.TargetID); err != nil {
			return err
		}

		offeredCount, err := store.CardCount(ctx, tx, tr.RequesterID, tr.OfferedCard)
		if err != nil {
			return err
		}
		requestedCount, err := store.CardCount(ctx, tx, tr.TargetID, tr.RequestedCard)
		if err != nil {
			return err
		}
		if offeredCount < 1 || requestedCount < 1 {
			return errRevalidation
		}
		if card, ok := s.catalog.Lookup(tr.RequestedCard); ok && card.IsFull {
			return errRevalidation
		}

		// Quotas before inventory: a cap hit aborts before anything moves.
		week := s.week()
		if err := store.ConsumeTradeQuota(ctx, tx, tr.RequesterID, week, s.weeklyLimit); err != nil {
			return err
		}
		if err := store.ConsumeTradeQuota(ctx, tx, tr.TargetID, week, s.weeklyLimit); err != nil {
			return err
		}

		err = store.ApplyInventory(ctx, tx, tr.RequesterID, []models.InventoryDelta{
			{Category: tr.OfferedCard.Category, Name: tr.OfferedCard.Name, Delta: -1},
			{Category: tr.RequestedCard.Category, Name: tr.RequestedCard.Name, Delta: 1},
		})
		if err != nil {
			return err
		}
		err = store.ApplyInventory(ctx, tx, tr.TargetID, []models.InventoryDelta{
			{Category: tr.RequestedCard.Category, Name: tr.RequestedCard.Name, Delta: -1},
			{Category: tr.OfferedCard.Category, Name: tr.OfferedCard.Name, Delta: 1},
		})
		if err != nil {
			return err
		}

		if err := store.TransitionTrade(ctx, tx, tradeID, models.TradeAccepted, now); err != nil {
			return err
		}
		tr.Status = models.TradeAccepted
		tr.ResolvedAt = &now
		accepted = tr
		return nil
	})
	if errors.Is(err, errRevalidation) {
		// One side lost their card since propose. Park the request in a
		// terminal state; best effort, a concurrent transition is fine.
		if terr := store.TransitionTrade(ctx, s.store.Pool(), tradeID, models.TradeDeclined, s.now()); terr != nil && !errors.Is(terr, models.ErrConflict) {
			zap.L().Warn("failed to park unfulfillable trade", zap.String("trade_id", tradeID), zap.Error(terr))
		}
		return models.TradeRequest{}, fmt.Errorf("%w: card no longer available", models.ErrConflict)
	}
	if err != nil {
		return models.TradeRequest{}, err
	}
	zap.L().Info("trade accepted", zap.String("trade_id", tradeID))
	return accepted, nil
}

// Decline rejects a pending trade. Only the target may decline.
func (s *Service) Decline(ctx context.Context, callerID, tradeID string) error {
	tr, err := store.GetTradeRequest(ctx, s.store.Pool(), tradeID)
	if err != nil {
		return err
	}
	if tr.TargetID != callerID {
		return fmt.Errorf("%w: only the trade target can decline", models.ErrValidation)
	}
	if err := store.TransitionTrade(ctx, s.store.Pool(), tradeID, models.TradeDeclined, s.now()); err != nil {
		return err
	}
	zap.L().Info("trade declined", zap.String("trade_id", tradeID))
	return nil
}

// Cancel withdraws a pending trade. Only the requester may cancel.
func (s *Service) Cancel(ctx context.Context, callerID, tradeID string) error {
	tr, err := store.GetTradeRequest(ctx, s.store.Pool(), tradeID)
	if err != nil {
		return err
	}
	if tr.RequesterID != callerID {
		return fmt.Errorf("%w: only the requester can cancel", models.ErrValidation)
	}
	if err := store.TransitionTrade(ctx, s.store.Pool(), tradeID, models.TradeCancelled, s.now()); err != nil {
		return err
	}
	zap.L().Info("trade cancelled", zap.String("trade_id", tradeID))
	return nil
}

// Requests lists the caller's pending trades, split by direction.
func (s *Service) Requests(ctx context.Context, userID string) (models.TradeRequests, error) {
	pending, err := store.PendingTradesFor(ctx, s.store.Pool(), userID, s.now())
	if err != nil {
		return models.TradeRequests{}, err
	}
	out := models.TradeRequests{
		Received: []models.TradeRequest{},
		Sent:     []models.TradeRequest{},
	}
	for _, tr := range pending {
		if tr.TargetID == userID {
			out.Received = append(out.Received, tr)
		} else {
			out.Sent = append(out.Sent, tr)
		}
	}
	return out, nil
}

// Search builds the bazaar availability view: discovered, non-full cards
// held by other users, with per-owner tradeable counts. By default only
// duplicates (count above one) are offered.
func (s *Service) Search(ctx context.Context, callerID string, params models.SearchParams) (models.SearchResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = 20
	}
	if params.PerPage > 100 {
		params.PerPage = 100
	}

	q := s.store.Pool()
	discovered, err := store.DiscoveredSet(ctx, q)
	if err != nil {
		return models.SearchResult{}, err
	}
	owners, err := store.CardOwners(ctx, q)
	if err != nil {
		return models.SearchResult{}, err
	}

	refs := make([]models.CardRef, 0, len(owners))
	for ref := range owners {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Category != refs[j].Category {
			return refs[i].Category < refs[j].Category
		}
		return refs[i].Name < refs[j].Name
	})

	query := strings.ToLower(params.Query)
	var results []models.CardAvailability
	for _, ref := range refs {
		if !discovered[ref] {
			continue
		}
		card, ok := s.catalog.Lookup(ref)
		if !ok || card.IsFull {
			continue
		}
		if params.Category != "" && ref.Category != params.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(ref.Name), query) &&
			!strings.Contains(strings.ToLower(ref.Category), query) {
			continue
		}

		var avail []models.OwnerAvailability
		var total int
		for _, o := range owners[ref] {
			if o.UserID == callerID {
				continue
			}
			available := o.Count
			if !params.IncludeNonDuplicates {
				available = o.Count - 1
			}
			if available <= 0 {
				continue
			}
			avail = append(avail, models.OwnerAvailability{UserID: o.UserID, Count: o.Count, Available: available})
			total += available
		}
		if len(avail) == 0 {
			continue
		}
		results = append(results, models.CardAvailability{
			Category:       ref.Category,
			Name:           ref.Name,
			ImageRef:       card.ImageRef,
			Owners:         avail,
			TotalAvailable: total,
		})
	}

	total := len(results)
	totalPages := (total + params.PerPage - 1) / params.PerPage
	if totalPages == 0 {
		totalPages = 1
	}
	start := (params.Page - 1) * params.PerPage
	if start > total {
		start = total
	}
	end := start + params.PerPage
	if end > total {
		end = total
	}

	return models.SearchResult{
		Cards:      results[start:end],
		Total:      total,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
	}, nil
}

func newTradeID() string {
	u := uuid.New()
	return "trade_" + hex.EncodeToString(u[:])[:12]
}
