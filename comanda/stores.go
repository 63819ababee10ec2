/*
stores.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the contracts between the lifecycle controller and its
  collaborators: the tab store, the player directory, and the
  notification channel. Exact transport is out of scope; these are
  contracts, not wire formats.

TWO-PART WRITE:
  AppendItem takes both the new item and the new running total and must
  apply them atomically (one SQL transaction, or one critical section in
  the memory store). A naive item-insert followed by a separate total
  update could be observed half-applied; the interface does not allow it.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - comanda/store/memory.go: In-memory for testing/dev
*/
package comanda

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TAB STORE
// =============================================================================

// TabFilter narrows ListTabs. Zero values mean "any".
type TabFilter struct {
	EventID  string
	PlayerID PlayerID
	Status   TabStatus
}

// TabStore persists tabs and their items.
type TabStore interface {
	// CreateTab persists a new tab. Returns OpenTabError if the player
	// already has an open tab (at most one open tab per player, enforced
	// at the store level so two concurrent opens cannot both pass).
	CreateTab(ctx context.Context, tab *Tab) error

	// FindOpenTab returns the player's open tab, or nil if none.
	FindOpenTab(ctx context.Context, playerID PlayerID) (*Tab, error)

	// GetTab returns a tab by ID. Returns ErrTabNotFound if unknown.
	GetTab(ctx context.Context, id TabID) (*Tab, error)

	// Items returns the tab's items ordered by creation time.
	Items(ctx context.Context, id TabID) ([]TabItem, error)

	// AppendItem atomically inserts the item and sets the tab's running
	// total. Fails with ErrTabNotOpen if the tab is no longer open.
	AppendItem(ctx context.Context, id TabID, item TabItem, newTotal decimal.Decimal) error

	// SetStatus flips the tab status, records or clears the closed
	// timestamp, and persists the new ledger sequence.
	SetStatus(ctx context.Context, id TabID, status TabStatus, closedAt *time.Time, ledgerSeq int) error

	// SetTotal overwrites the running total. Admin reconciliation only;
	// bypasses the ledger by design.
	SetTotal(ctx context.Context, id TabID, total decimal.Decimal) error

	// ListTabs returns tabs matching the filter, newest first.
	ListTabs(ctx context.Context, filter TabFilter) ([]Tab, error)
}

// =============================================================================
// PLAYER DIRECTORY
// =============================================================================

// PlayerDirectory is the read-only player lookup. The controller reads
// the VIP tier here at AddItem time.
type PlayerDirectory interface {
	// Player returns a player by ID. Returns ErrPlayerNotFound if unknown.
	Player(ctx context.Context, id PlayerID) (*Player, error)

	// SearchPlayers returns players whose name matches the query,
	// case-insensitive. Empty query returns all.
	SearchPlayers(ctx context.Context, query string) ([]Player, error)
}

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier delivers player-facing messages. Best-effort: the controller
// calls it after a committed Close/Reopen and a failure here never rolls
// the transition back.
type Notifier interface {
	Notify(ctx context.Context, playerID PlayerID, message string) error
}
