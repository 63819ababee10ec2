/*
Package comanda provides the tab (comanda) lifecycle and balance-ledger engine.

PURPOSE:
  This package contains the core domain logic for running bar and tournament
  tabs against player balances: opening and closing tabs, tiered VIP pricing,
  one-time-per-tab item constraints, and reopening closed tabs with
  compensating balance adjustments.

KEY CONCEPTS IN THIS FILE (types.go):
  - Player: The tab owner, with a VIP tier that drives pricing
  - Product: A catalog item (bar, bet, jackpot, lastlonger)
  - AddOn: A tournament add-on synthesized per event (Buy In, Staff, ...)
  - TabItem: One charged line on a tab; repeats are separate rows
  - Tab: The open/closed aggregate with its denormalized running total

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money, never float64
  2. Type Safety: Strong typing for IDs prevents mixing tab/player IDs
  3. Derived State: One-time usage is recomputed from the item list,
     never persisted as a flag that could desync
  4. Ledger Gating: Money movements gate state transitions, never the
     reverse

INVARIANT:
  Tab.Total == sum of TabItem.UnitPrice at every observation point. The
  controller and stores update both inside the same logical operation.

SEE ALSO:
  - pricing.go: VIP price rules
  - onetime.go: One-time item key derivation
  - controller.go: Lifecycle state machine
  - ledger.go: Atomic account credit/debit contract
*/
package comanda

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PlayerID string
type TabID string
type ItemID string

// =============================================================================
// VIP TIERS
// =============================================================================

// VIPTier grants price discounts on specific categories and items.
type VIPTier string

const (
	TierNone       VIPTier = ""
	TierTrimestral VIPTier = "vip_trimestral"
	TierAnual      VIPTier = "vip_anual"
	TierMaster     VIPTier = "vip_master"
)

// Valid reports whether the tier is one of the known values.
// The empty tier (no VIP) is valid.
func (t VIPTier) Valid() bool {
	switch t {
	case TierNone, TierTrimestral, TierAnual, TierMaster:
		return true
	}
	return false
}

// =============================================================================
// CATALOG TYPES (read-only collaborators own these records)
// =============================================================================

// Category classifies catalog products. The one-time tracker and the
// pricing engine key several rules off it.
type Category string

const (
	CategoryBar        Category = "bar"
	CategoryBet        Category = "bet"
	CategoryJackpot    Category = "jackpot"
	CategoryLastLonger Category = "lastlonger"
)

// Player is the tab owner. Read-only to this core; the balance lives in
// the account ledger and is never cached here for charge decisions.
type Player struct {
	ID   PlayerID
	Name string
	Tier VIPTier
}

// Product is a catalog item. Owned by the catalog collaborator.
type Product struct {
	ID        string
	Category  Category
	Name      string
	BasePrice decimal.Decimal
	Active    bool
}

// AddOn is a tournament add-on synthesized per active event from its
// configured values. Not persisted; the item row keeps a free-text note.
// ChipBonus marks add-ons that grant a cosmetic chip bonus for the
// vip_master tier (no price change).
type AddOn struct {
	Name      string
	Price     decimal.Decimal
	ChipBonus bool
}

// =============================================================================
// TAB AGGREGATE
// =============================================================================

type TabStatus string

const (
	StatusOpen   TabStatus = "open"
	StatusClosed TabStatus = "closed"
)

// TabItem is a single charged line on a tab. Quantity is always 1 per
// insertion; repeats are separate rows. UnitPrice is the post-discount
// charged price. CreatedAt defines item order.
//
// A TabItem references either a Product (ProductID, Category, Name set)
// or carries a free-text Note describing a tournament add-on (ProductID
// empty).
type TabItem struct {
	ID        ItemID
	TabID     TabID
	ProductID string
	Category  Category
	Name      string
	Note      string
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// IsAddOn reports whether the item is a tournament add-on line rather
// than a catalog product.
func (it TabItem) IsAddOn() bool { return it.ProductID == "" }

// Tab is the comanda aggregate: one open running account for a player's
// consumption during an event session. It is mutated only through the
// Controller and never physically deleted.
//
// LedgerSeq counts ledger-backed transitions (Close, Reopen) and keys
// their idempotency: a retry after an ambiguous ledger failure replays
// the same movement key and cannot double-charge.
type Tab struct {
	ID        TabID
	EventID   string
	PlayerID  PlayerID
	Status    TabStatus
	Total     decimal.Decimal
	OpenedBy  string
	OpenedAt  time.Time
	ClosedAt  *time.Time
	LedgerSeq int
}

// SumItems returns the sum of charged item prices. Used by tests and
// readers to check the running-total invariant.
func SumItems(items []TabItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice)
	}
	return total
}
