/*
controller.go - Tab lifecycle state machine

PURPOSE:
  Orchestrates open -> add-item -> close/reopen/adjust transitions,
  calling the pricing engine, the one-time tracker, and the account
  ledger, and owning the failure/rollback policy.

STATE MACHINE:
  States: OPEN, CLOSED. Initial state on creation: OPEN.
  CLOSED is reversible via an explicit, admin-gated Reopen.

  Open         OPEN tab exists for player? reject : create (total 0)
  AddItem      tab OPEN + one-time key free : price, append, bump total
  Close        debit(owner, total) succeeds : flip to CLOSED + notify
  Reopen       credit(owner, total) succeeds : flip to OPEN + notify
  AdjustTotal  CLOSED only; overwrites total, bypasses the ledger
  TopUp        credit(owner, amount); does not touch the tab

ORDERING:
  The ledger call result gates the status flip, never the reverse. No
  operation flips status optimistically and rolls back. A failed debit
  leaves the tab OPEN with items and total unchanged; a failed refund
  leaves it CLOSED.

CONCURRENCY:
  Operator actions arrive from independent terminals. All mutations to
  one tab are serialized through a per-tab lock so two concurrent
  AddItem calls cannot both pass the one-time check, and the two-part
  item+total write is handed to the store as one atomic call. Account
  atomicity is the ledger's contract (see ledger.go).

IDEMPOTENCY:
  Close and Reopen derive their movement key from the tab's persisted
  ledger sequence. A retry after an ambiguous ledger failure replays the
  same key; the ledger answers ErrDuplicateMovement and the controller
  proceeds to the status flip it never reached.

SEE ALSO:
  - pricing.go: Charge computation
  - onetime.go: One-time enforcement
  - stores.go: Collaborator contracts
*/
package comanda

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs the tab lifecycle. Safe for concurrent use.
type Controller struct {
	tabs     TabStore
	players  PlayerDirectory
	ledger   AccountLedger
	notifier Notifier
	log      logrus.FieldLogger

	mu    sync.Mutex
	locks map[TabID]*sync.Mutex
}

// NewController wires the controller with its collaborators.
// notifier may be nil (notifications are skipped); log may be nil
// (falls back to the standard logger).
func NewController(tabs TabStore, players PlayerDirectory, ledger AccountLedger, notifier Notifier, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		tabs:     tabs,
		players:  players,
		ledger:   ledger,
		notifier: notifier,
		log:      log,
		locks:    make(map[TabID]*sync.Mutex),
	}
}

// lockTab acquires the per-tab exclusive scope. Returns the unlock func.
func (c *Controller) lockTab(id TabID) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func movementKey(op string, id TabID, seq int) string {
	return fmt.Sprintf("%s:%s:%d", op, id, seq)
}

// =============================================================================
// OPEN
// =============================================================================

// Open creates a tab for a player who has no other open tab.
func (c *Controller) Open(ctx context.Context, eventID string, playerID PlayerID, openedBy string) (*Tab, error) {
	player, err := c.players.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if existing, err := c.tabs.FindOpenTab(ctx, playerID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &OpenTabError{PlayerID: playerID, TabID: existing.ID}
	}

	tab := &Tab{
		ID:       TabID(uuid.NewString()),
		EventID:  eventID,
		PlayerID: playerID,
		Status:   StatusOpen,
		Total:    decimal.Zero,
		OpenedBy: openedBy,
		OpenedAt: time.Now().UTC(),
	}
	// The store enforces the one-open-tab invariant again; a racing Open
	// on another terminal loses here with OpenTabError.
	if err := c.tabs.CreateTab(ctx, tab); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"tab":    tab.ID,
		"player": player.ID,
		"event":  eventID,
	}).Info("comanda aberta")
	return tab, nil
}

// =============================================================================
// ADD ITEM
// =============================================================================

// AddProduct prices a catalog product with the owner's current VIP tier
// and appends it to an open tab.
func (c *Controller) AddProduct(ctx context.Context, id TabID, p Product) (*TabItem, error) {
	if !p.Active {
		return nil, fmt.Errorf("%w: %s", ErrInactiveProduct, p.Name)
	}
	return c.addItem(ctx, id, func(tier VIPTier) TabItem {
		return TabItem{
			ProductID: p.ID,
			Category:  p.Category,
			Name:      p.Name,
			UnitPrice: Price(p.BasePrice, p.Category, p.Name, tier),
		}
	})
}

// AddAddOn prices a tournament add-on and appends it to an open tab. The
// item row carries a free-text note; vip_master chip bonuses annotate the
// note without changing the price.
func (c *Controller) AddAddOn(ctx context.Context, id TabID, a AddOn) (*TabItem, error) {
	return c.addItem(ctx, id, func(tier VIPTier) TabItem {
		note := a.Name
		if AddOnChipBonus(a, tier) {
			note += " (bônus de fichas)"
		}
		return TabItem{
			Name:      a.Name,
			Note:      note,
			UnitPrice: AddOnPrice(a.Price, a.Name, tier),
		}
	})
}

// addItem holds the per-tab lock across the one-time check and the
// two-part write so concurrent adds serialize.
func (c *Controller) addItem(ctx context.Context, id TabID, build func(tier VIPTier) TabItem) (*TabItem, error) {
	unlock := c.lockTab(id)
	defer unlock()

	tab, err := c.tabs.GetTab(ctx, id)
	if err != nil {
		return nil, err
	}
	if tab.Status != StatusOpen {
		return nil, fmt.Errorf("add item: %w", ErrTabNotOpen)
	}

	// Tier is read at the moment of charge. If it changed mid-tab, later
	// items use the new tier while earlier ones keep their charged price.
	player, err := c.players.Player(ctx, tab.PlayerID)
	if err != nil {
		return nil, err
	}

	item := build(player.Tier)
	item.ID = ItemID(uuid.NewString())
	item.TabID = id
	item.CreatedAt = time.Now().UTC()

	items, err := c.tabs.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	if used := UsedKeys(items); IsBlocked(item, used) {
		return nil, &OneTimeItemError{TabID: id, Key: ItemKey(item), Name: item.Name}
	}

	if err := c.tabs.AppendItem(ctx, id, item, tab.Total.Add(item.UnitPrice)); err != nil {
		return nil, err
	}
	return &item, nil
}

// =============================================================================
// CLOSE / REOPEN
// =============================================================================

// Close debits the tab total from the owner's balance and, only on
// success, flips the tab to CLOSED. A zero-total tab closes without a
// ledger call (the ledger rejects zero movements).
func (c *Controller) Close(ctx context.Context, id TabID) (*Tab, error) {
	unlock := c.lockTab(id)
	defer unlock()

	tab, err := c.tabs.GetTab(ctx, id)
	if err != nil {
		return nil, err
	}
	if tab.Status != StatusOpen {
		return nil, fmt.Errorf("close: %w", ErrTabNotOpen)
	}

	seq := tab.LedgerSeq + 1
	if tab.Total.IsPositive() {
		key := movementKey("close", id, seq)
		err := c.ledger.Debit(ctx, tab.PlayerID, tab.Total, key, "fechamento de comanda")
		switch {
		case errors.Is(err, ErrDuplicateMovement):
			// A previous attempt debited but never flipped the status.
			// Proceed to the flip; the money moved exactly once.
		case err != nil:
			return nil, err
		}
	}

	closedAt := time.Now().UTC()
	if err := c.tabs.SetStatus(ctx, id, StatusClosed, &closedAt, seq); err != nil {
		return nil, err
	}
	tab.Status = StatusClosed
	tab.ClosedAt = &closedAt
	tab.LedgerSeq = seq

	c.log.WithFields(logrus.Fields{
		"tab":    tab.ID,
		"player": tab.PlayerID,
		"total":  tab.Total.StringFixed(2),
	}).Info("comanda fechada")

	c.notifyAsync(tab.PlayerID, fmt.Sprintf(
		"Sua comanda foi fechada. R$ %s debitado do seu saldo.", tab.Total.StringFixed(2)))
	return tab, nil
}

// Reopen refunds the tab total to the owner's balance and, only on
// success, flips the tab back to OPEN with a cleared closed timestamp.
// Admin-gated, operator-confirmed.
func (c *Controller) Reopen(ctx context.Context, id TabID) (*Tab, error) {
	unlock := c.lockTab(id)
	defer unlock()

	tab, err := c.tabs.GetTab(ctx, id)
	if err != nil {
		return nil, err
	}
	if tab.Status != StatusClosed {
		return nil, fmt.Errorf("reopen: %w", ErrTabNotClosed)
	}

	seq := tab.LedgerSeq + 1
	if tab.Total.IsPositive() {
		key := movementKey("reopen", id, seq)
		err := c.ledger.Credit(ctx, tab.PlayerID, tab.Total, key, "reabertura de comanda")
		switch {
		case errors.Is(err, ErrDuplicateMovement):
			// Refund already applied by a previous attempt.
		case err != nil:
			// Failed refund leaves the tab CLOSED.
			return nil, err
		}
	}

	if err := c.tabs.SetStatus(ctx, id, StatusOpen, nil, seq); err != nil {
		return nil, err
	}
	tab.Status = StatusOpen
	tab.ClosedAt = nil
	tab.LedgerSeq = seq

	c.log.WithFields(logrus.Fields{
		"tab":    tab.ID,
		"player": tab.PlayerID,
		"total":  tab.Total.StringFixed(2),
	}).Info("comanda reaberta")

	c.notifyAsync(tab.PlayerID, fmt.Sprintf(
		"Sua comanda foi reaberta. R$ %s devolvido ao seu saldo.", tab.Total.StringFixed(2)))
	return tab, nil
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

// AdjustTotal overwrites a closed tab's total without any compensating
// ledger movement. Escape hatch for reconciliation errors: it can
// desynchronize the total from the sum of item prices, which is an
// accepted, logged exception to the running-total invariant.
func (c *Controller) AdjustTotal(ctx context.Context, id TabID, total decimal.Decimal) (*Tab, error) {
	if total.IsNegative() {
		return nil, fmt.Errorf("adjust total: %w", ErrInvalidAmount)
	}

	unlock := c.lockTab(id)
	defer unlock()

	tab, err := c.tabs.GetTab(ctx, id)
	if err != nil {
		return nil, err
	}
	if tab.Status != StatusClosed {
		return nil, fmt.Errorf("adjust total: %w", ErrTabNotClosed)
	}

	if err := c.tabs.SetTotal(ctx, id, total); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"tab":       tab.ID,
		"player":    tab.PlayerID,
		"old_total": tab.Total.StringFixed(2),
		"new_total": total.StringFixed(2),
	}).Warn("total da comanda ajustado manualmente (sem movimento no ledger)")

	tab.Total = total
	return tab, nil
}

// TopUp credits the player's balance outside of any tab transition.
// Admin-gated. reference identifies the operator action for idempotent
// retries; when empty a fresh one is generated.
func (c *Controller) TopUp(ctx context.Context, playerID PlayerID, amount decimal.Decimal, reference string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("top up: %w", ErrInvalidAmount)
	}
	if _, err := c.players.Player(ctx, playerID); err != nil {
		return err
	}

	if reference == "" {
		reference = uuid.NewString()
	}
	err := c.ledger.Credit(ctx, playerID, amount, "topup:"+reference, "crédito de saldo")
	if errors.Is(err, ErrDuplicateMovement) {
		// Replayed operator action; the credit already landed.
		return nil
	}
	if err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"player": playerID,
		"amount": amount.StringFixed(2),
	}).Info("saldo creditado")
	return nil
}

// =============================================================================
// NOTIFICATIONS (best-effort)
// =============================================================================

// notifyAsync fires the notification without blocking the transition.
// Uses a detached context: the operator request may already be done.
func (c *Controller) notifyAsync(playerID PlayerID, message string) {
	if c.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.notifier.Notify(ctx, playerID, message); err != nil {
			c.log.WithFields(logrus.Fields{
				"player": playerID,
			}).WithError(err).Warn("falha ao notificar jogador")
		}
	}()
}
