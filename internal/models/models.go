package models

import "time"

// CardRef identifies a card definition by its catalog coordinates.
type CardRef struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// Card is a catalog definition as exposed to clients.
type Card struct {
	Category     string  `json:"category"`
	Name         string  `json:"name"`
	ImageRef     string  `json:"image_ref,omitempty"`
	IsFull       bool    `json:"is_full"`
	RarityWeight float64 `json:"rarity_weight"`
}

// Ref returns the card's catalog coordinates.
func (c Card) Ref() CardRef {
	return CardRef{Category: c.Category, Name: c.Name}
}

// InventoryItem is one owned card row in a user's collection.
type InventoryItem struct {
	Category        string    `json:"category"`
	Name            string    `json:"name"`
	Count           int       `json:"count"`
	IsFull          bool      `json:"is_full"`
	FirstAcquiredAt time.Time `json:"first_acquired_at"`
}

// InventoryDelta is one leg of an atomic inventory mutation.
// All legs of a single apply succeed or fail together.
type InventoryDelta struct {
	Category string
	Name     string
	Delta    int
}

// UpgradeEvent records one consolidation of five base copies into a full card.
type UpgradeEvent struct {
	Category   string `json:"category"`
	Name       string `json:"name"`
	BaseName   string `json:"original_name"`
	Sacrificed int    `json:"sacrificed_count"`
}

// Discovery is the global first-ever acquisition record of a card.
type Discovery struct {
	Category     string    `json:"category"`
	Name         string    `json:"name"`
	DiscovererID string    `json:"discoverer_id"`
	Index        int64     `json:"discovery_index"`
	CreatedAt    time.Time `json:"created_at"`
}

// TradeStatus is the lifecycle state of a trade request.
// Pending is the only non-terminal state.
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeDeclined  TradeStatus = "declined"
	TradeCancelled TradeStatus = "cancelled"
	TradeExpired   TradeStatus = "expired"
)

// TradeRequest is a proposed card swap between two users.
type TradeRequest struct {
	ID            string      `json:"id"`
	RequesterID   string      `json:"requester_id"`
	TargetID      string      `json:"target_id"`
	OfferedCard   CardRef     `json:"offered_card"`
	RequestedCard CardRef     `json:"requested_card"`
	Status        TradeStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
	ResolvedAt    *time.Time  `json:"resolved_at,omitempty"`
}

// VaultItem is one staged card row in a user's vault.
type VaultItem struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

// DrawResult is the outcome of a daily, bonus, or sacrificial draw.
type DrawResult struct {
	Cards       []Card         `json:"cards"`
	Sacrificed  []CardRef      `json:"sacrificed,omitempty"`
	Upgrades    []UpgradeEvent `json:"upgrades,omitempty"`
	Discoveries []Discovery    `json:"discoveries,omitempty"`
}

// DrawStatus reports the caller's draw eligibility for the current day.
type DrawStatus struct {
	CanDailyDraw       bool      `json:"can_daily_draw"`
	CanSacrificialDraw bool      `json:"can_sacrificial_draw"`
	BonusAvailable     int       `json:"bonus_available"`
	EligibleCount      int       `json:"eligible_count"`
	SacrificialCards   []CardRef `json:"sacrificial_cards"`
	TotalCards         int       `json:"total_cards"`
}

// OwnerAvailability is one owner of a searched card with tradeable counts.
type OwnerAvailability struct {
	UserID    string `json:"user_id"`
	Count     int    `json:"count"`
	Available int    `json:"available"`
}

// CardAvailability aggregates bazaar availability for one card.
type CardAvailability struct {
	Category       string              `json:"category"`
	Name           string              `json:"name"`
	ImageRef       string              `json:"image_ref,omitempty"`
	Owners         []OwnerAvailability `json:"owners"`
	TotalAvailable int                 `json:"total_available"`
}

// SearchResult is a paginated bazaar search response.
type SearchResult struct {
	Cards      []CardAvailability `json:"cards"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PerPage    int                `json:"per_page"`
	TotalPages int                `json:"total_pages"`
}

// SearchParams filters a bazaar search.
type SearchParams struct {
	Query                string
	Category             string
	IncludeNonDuplicates bool
	Page                 int
	PerPage              int
}

// TradeRequests groups a user's pending requests by direction.
type TradeRequests struct {
	Received []TradeRequest `json:"received"`
	Sent     []TradeRequest `json:"sent"`
}

// UserStats aggregates collection and quota state for one user.
type UserStats struct {
	UserID               string      `json:"user_id"`
	TotalCards           int         `json:"total_cards"`
	UniqueCards          int         `json:"unique_cards"`
	CompletionPercentage float64     `json:"completion_percentage"`
	Discoveries          []Discovery `json:"discoveries"`
	TradesUsedThisWeek   int         `json:"trades_used_this_week"`
	WeeklyTradeLimit     int         `json:"weekly_trade_limit"`
	BonusAvailable       int         `json:"bonus_available"`
	CanDailyDraw         bool        `json:"can_daily_draw"`
	CanSacrificialDraw   bool        `json:"can_sacrificial_draw"`
}

// ProposeRequest is the payload for creating a trade request.
type ProposeRequest struct {
	TargetID          string `json:"target_id"`
	OfferedCategory   string `json:"offered_category"`
	OfferedName       string `json:"offered_name"`
	RequestedCategory string `json:"requested_category"`
	RequestedName     string `json:"requested_name"`
}

// VaultMoveRequest is the payload for a vault deposit or withdrawal.
type VaultMoveRequest struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// BonusGrantRequest is the admin payload for granting bonus draws.
type BonusGrantRequest struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
}
