/*
ledger.go - Account ledger contract (atomic credit/debit)

PURPOSE:
  The account ledger is the external balance store. This core never reads
  or caches the balance for a charge decision; it always routes through
  the two movement primitives below. Close is the single point where money
  leaves the player's balance; Reopen is its refund.

ATOMICITY:
  Debit is a single atomic check-and-subtract (conditional update at the
  account row), never read-then-write. This is the one invariant that
  prevents an overdraft race between a Close on one terminal and a top-up
  or another Close on another terminal for the same player.

IDEMPOTENCY:
  Every movement carries a caller-supplied idempotency key. Replaying a
  key must not re-apply the movement; implementations return
  ErrDuplicateMovement instead. A caller retrying a logical operation
  after an ambiguous failure (e.g. timeout after the ledger may have
  applied the change) replays the same key and treats the duplicate as
  success.

IMPLEMENTATIONS:
  - store/sqlite: Conditional UPDATE inside one SQL transaction
  - comanda/store: In-memory double for tests and dev mode
*/
package comanda

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT LEDGER - Collaborator interface consumed by the controller
// =============================================================================

// AccountLedger exposes atomic balance movements, race-free under
// concurrent callers for the same account.
type AccountLedger interface {
	// Credit unconditionally increases the balance. amount must be > 0.
	// Returns ErrDuplicateMovement if key was already applied.
	Credit(ctx context.Context, playerID PlayerID, amount decimal.Decimal, key, reason string) error

	// Debit decreases the balance only if current balance >= amount, as a
	// single atomic step. amount must be > 0.
	// Returns ErrInsufficientFunds (wrapped in InsufficientFundsError when
	// the implementation knows the available balance) on shortage, and
	// ErrDuplicateMovement if key was already applied.
	Debit(ctx context.Context, playerID PlayerID, amount decimal.Decimal, key, reason string) error

	// Balance returns the current balance for display only. Never used
	// for charge decisions.
	Balance(ctx context.Context, playerID PlayerID) (decimal.Decimal, error)
}
