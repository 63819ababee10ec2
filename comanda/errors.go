/*
errors.go - Centralized error types for the comanda engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Store implementations return these sentinels so callers can branch
  with errors.Is regardless of the backing store.

ERROR CATEGORIES:
  1. Validation errors - rejected locally, no ledger call, no state change
  2. Ledger errors - insufficient funds, unavailable backend, replayed keys
  3. Not-found errors - stale tab/player references

PROPAGATION POLICY:
  Every error is returned to the caller and scoped to the single requested
  operation. Nothing here is fatal to the process. Only the best-effort
  notification step is fire-and-forget.

SEE ALSO:
  - controller.go: Produces validation errors before any ledger call
  - ledger.go: Ledger error contract
*/
package comanda

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTabNotFound is returned for a stale or unknown tab reference.
	ErrTabNotFound = errors.New("tab not found")

	// ErrPlayerNotFound is returned for a stale or unknown player reference.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrTabNotOpen is returned when mutating a tab that is not open
	// (adding items to or closing a closed tab).
	ErrTabNotOpen = errors.New("tab is not open")

	// ErrTabNotClosed is returned when reopening or adjusting a tab that
	// is not closed.
	ErrTabNotClosed = errors.New("tab is not closed")

	// ErrOpenTabExists is returned when opening a second tab for a player
	// who already has one open. At most one open tab per player.
	ErrOpenTabExists = errors.New("player already has an open tab")

	// ErrOneTimeItemUsed is returned when the item's one-time key is
	// already present on the tab.
	ErrOneTimeItemUsed = errors.New("one-time item already on tab")

	// ErrInactiveProduct is returned when adding a product that is no
	// longer active in the catalog.
	ErrInactiveProduct = errors.New("product is not active")

	// ErrInvalidAmount is returned for non-positive top-ups and negative
	// total adjustments.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds is returned when a debit exceeds the player's
	// balance. The tab stays open; collect payment via top-up and retry.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateMovement is returned by the ledger when a movement with
	// the same idempotency key was already applied. Callers retrying a
	// logical operation treat this as success: the prior attempt committed.
	ErrDuplicateMovement = errors.New("duplicate ledger movement")

	// ErrLedgerUnavailable is returned for transient ledger I/O failures.
	// The operation is safely retryable with the same idempotency key.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	PlayerID  PlayerID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: player %s has %s, tab total is %s",
		e.PlayerID, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// OneTimeItemError provides details about a one-time key violation.
type OneTimeItemError struct {
	TabID TabID
	Key   OneTimeKey
	Name  string
}

func (e *OneTimeItemError) Error() string {
	return fmt.Sprintf("item %q already on tab %s (one-time key %q)", e.Name, e.TabID, e.Key)
}

func (e *OneTimeItemError) Unwrap() error { return ErrOneTimeItemUsed }

// OpenTabError provides details about the one-open-tab-per-player violation.
type OpenTabError struct {
	PlayerID PlayerID
	TabID    TabID // the existing open tab
}

func (e *OpenTabError) Error() string {
	return fmt.Sprintf("player %s already has open tab %s", e.PlayerID, e.TabID)
}

func (e *OpenTabError) Unwrap() error { return ErrOpenTabExists }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid operator input
// or a business-rule rejection (HTTP 4xx territory).
func IsClientError(err error) bool {
	return errors.Is(err, ErrTabNotOpen) ||
		errors.Is(err, ErrTabNotClosed) ||
		errors.Is(err, ErrOpenTabExists) ||
		errors.Is(err, ErrOneTimeItemUsed) ||
		errors.Is(err, ErrInactiveProduct) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds)
}

// IsNotFound returns true if the error indicates a stale reference.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTabNotFound) ||
		errors.Is(err, ErrPlayerNotFound)
}

// IsRetryable returns true if the error might succeed on retry with the
// same idempotency key.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable)
}
