// Package store provides in-memory implementations of the comanda
// collaborator interfaces (for testing/dev).
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/comanda-engine/comanda"
)

// =============================================================================
// MEMORY TAB STORE
// =============================================================================

type MemoryTabStore struct {
	mu    sync.RWMutex
	tabs  map[comanda.TabID]comanda.Tab
	items map[comanda.TabID][]comanda.TabItem
}

func NewMemoryTabStore() *MemoryTabStore {
	return &MemoryTabStore{
		tabs:  make(map[comanda.TabID]comanda.Tab),
		items: make(map[comanda.TabID][]comanda.TabItem),
	}
}

// CreateTab enforces at most one open tab per player under the store lock,
// so two racing opens cannot both pass.
func (m *MemoryTabStore) CreateTab(_ context.Context, tab *comanda.Tab) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tabs {
		if t.PlayerID == tab.PlayerID && t.Status == comanda.StatusOpen {
			return &comanda.OpenTabError{PlayerID: tab.PlayerID, TabID: t.ID}
		}
	}
	m.tabs[tab.ID] = *tab
	return nil
}

func (m *MemoryTabStore) FindOpenTab(_ context.Context, playerID comanda.PlayerID) (*comanda.Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tabs {
		if t.PlayerID == playerID && t.Status == comanda.StatusOpen {
			tab := t
			return &tab, nil
		}
	}
	return nil, nil
}

func (m *MemoryTabStore) GetTab(_ context.Context, id comanda.TabID) (*comanda.Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tabs[id]
	if !ok {
		return nil, comanda.ErrTabNotFound
	}
	tab := t
	return &tab, nil
}

func (m *MemoryTabStore) Items(_ context.Context, id comanda.TabID) ([]comanda.TabItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.tabs[id]; !ok {
		return nil, comanda.ErrTabNotFound
	}
	result := make([]comanda.TabItem, len(m.items[id]))
	copy(result, m.items[id])
	return result, nil
}

// AppendItem applies the item insert and the total update in one critical
// section, so readers never observe one without the other.
func (m *MemoryTabStore) AppendItem(_ context.Context, id comanda.TabID, item comanda.TabItem, newTotal decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tabs[id]
	if !ok {
		return comanda.ErrTabNotFound
	}
	if t.Status != comanda.StatusOpen {
		return comanda.ErrTabNotOpen
	}

	m.items[id] = append(m.items[id], item)
	t.Total = newTotal
	m.tabs[id] = t
	return nil
}

func (m *MemoryTabStore) SetStatus(_ context.Context, id comanda.TabID, status comanda.TabStatus, closedAt *time.Time, ledgerSeq int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tabs[id]
	if !ok {
		return comanda.ErrTabNotFound
	}
	t.Status = status
	t.ClosedAt = closedAt
	t.LedgerSeq = ledgerSeq
	m.tabs[id] = t
	return nil
}

func (m *MemoryTabStore) SetTotal(_ context.Context, id comanda.TabID, total decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tabs[id]
	if !ok {
		return comanda.ErrTabNotFound
	}
	t.Total = total
	m.tabs[id] = t
	return nil
}

func (m *MemoryTabStore) ListTabs(_ context.Context, filter comanda.TabFilter) ([]comanda.Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []comanda.Tab
	for _, t := range m.tabs {
		if filter.EventID != "" && t.EventID != filter.EventID {
			continue
		}
		if filter.PlayerID != "" && t.PlayerID != filter.PlayerID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt.After(result[j].OpenedAt)
	})
	return result, nil
}

// =============================================================================
// MEMORY LEDGER
// =============================================================================

// MemoryLedger implements comanda.AccountLedger with the same atomicity
// guarantees as the SQL implementation: check-and-subtract under one lock,
// idempotency keys rejected on replay.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[comanda.PlayerID]decimal.Decimal
	applied  map[string]bool
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[comanda.PlayerID]decimal.Decimal),
		applied:  make(map[string]bool),
	}
}

// SetBalance seeds an account. Test setup only.
func (l *MemoryLedger) SetBalance(playerID comanda.PlayerID, balance decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[playerID] = balance
}

func (l *MemoryLedger) Credit(_ context.Context, playerID comanda.PlayerID, amount decimal.Decimal, key, _ string) error {
	if !amount.IsPositive() {
		return comanda.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applied[key] {
		return comanda.ErrDuplicateMovement
	}
	l.balances[playerID] = l.balances[playerID].Add(amount)
	l.applied[key] = true
	return nil
}

func (l *MemoryLedger) Debit(_ context.Context, playerID comanda.PlayerID, amount decimal.Decimal, key, _ string) error {
	if !amount.IsPositive() {
		return comanda.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applied[key] {
		return comanda.ErrDuplicateMovement
	}
	balance := l.balances[playerID]
	if balance.LessThan(amount) {
		return &comanda.InsufficientFundsError{
			PlayerID:  playerID,
			Available: balance,
			Requested: amount,
		}
	}
	l.balances[playerID] = balance.Sub(amount)
	l.applied[key] = true
	return nil
}

func (l *MemoryLedger) Balance(_ context.Context, playerID comanda.PlayerID) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[playerID], nil
}

// =============================================================================
// MEMORY PLAYER DIRECTORY
// =============================================================================

type MemoryDirectory struct {
	mu      sync.RWMutex
	players map[comanda.PlayerID]comanda.Player
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{players: make(map[comanda.PlayerID]comanda.Player)}
}

func (d *MemoryDirectory) PutPlayer(p comanda.Player) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.players[p.ID] = p
}

func (d *MemoryDirectory) Player(_ context.Context, id comanda.PlayerID) (*comanda.Player, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.players[id]
	if !ok {
		return nil, comanda.ErrPlayerNotFound
	}
	player := p
	return &player, nil
}

func (d *MemoryDirectory) SearchPlayers(_ context.Context, query string) ([]comanda.Player, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var result []comanda.Player
	for _, p := range d.players {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// MEMORY NOTIFIER
// =============================================================================

// Notification is a delivered message, recorded for assertions.
type Notification struct {
	PlayerID comanda.PlayerID
	Message  string
	At       time.Time
}

type MemoryNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (n *MemoryNotifier) Notify(_ context.Context, playerID comanda.PlayerID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{PlayerID: playerID, Message: message, At: time.Now()})
	return nil
}

func (n *MemoryNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]Notification, len(n.sent))
	copy(result, n.sent)
	return result
}
