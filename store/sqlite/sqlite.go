/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every collaborator contract the comanda engine consumes
  (comanda.TabStore, comanda.AccountLedger, comanda.PlayerDirectory,
  comanda.Notifier, catalog.Catalog) on a single SQLite database. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

MONEY:
  All amounts are stored as integer centavos. Prices are normalized to
  two decimal places before they reach the store, so the conversion is
  exact and the conditional debit can compare integers.

ATOMIC DEBIT:
  Debit is a conditional update inside one SQL transaction:

    UPDATE players SET balance_cents = balance_cents - ?
    WHERE id = ? AND balance_cents >= ?

  Zero rows affected means the player is missing or short; the
  transaction rolls back and nothing moved. Idempotency is an
  INSERT OR IGNORE into ledger_movements keyed on the movement key,
  in the same transaction: a replayed key changes no rows and the
  whole movement is reported as a duplicate.

TWO-PART WRITE:
  AppendItem inserts the item row and updates the tab total in one SQL
  transaction; no reader can observe one without the other.

KEY TABLES:
  players:          Directory + the single running balance
  tabs, tab_items:  The comanda aggregate
  ledger_movements: Applied movement keys (idempotency)
  products, events: Read-only catalog
  notifications:    Best-effort player messages

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

SEE ALSO:
  - comanda/stores.go: Interface definitions
  - comanda/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/comanda-engine/catalog"
	"github.com/warp/comanda-engine/comanda"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between overlapping write transactions.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Players (directory + running balance)
	CREATE TABLE IF NOT EXISTS players (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		vip_tier      TEXT NOT NULL DEFAULT '',
		balance_cents INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL
	);

	-- Catalog products
	CREATE TABLE IF NOT EXISTS products (
		id               TEXT PRIMARY KEY,
		category         TEXT NOT NULL,
		name             TEXT NOT NULL,
		base_price_cents INTEGER NOT NULL,
		active           INTEGER NOT NULL DEFAULT 1
	);

	-- Events: per-event add-on configuration as operator-entered BRL strings
	CREATE TABLE IF NOT EXISTS events (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		buyin        TEXT NOT NULL DEFAULT '',
		staff        TEXT NOT NULL DEFAULT '',
		rebuy        TEXT NOT NULL DEFAULT '',
		addon        TEXT NOT NULL DEFAULT '',
		double_rebuy TEXT NOT NULL DEFAULT '',
		double_addon TEXT NOT NULL DEFAULT '',
		active       INTEGER NOT NULL DEFAULT 1,
		created_at   TEXT NOT NULL
	);

	-- Tabs (comandas)
	CREATE TABLE IF NOT EXISTS tabs (
		id          TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL,
		player_id   TEXT NOT NULL REFERENCES players(id),
		status      TEXT NOT NULL,
		total_cents INTEGER NOT NULL DEFAULT 0,
		opened_by   TEXT NOT NULL DEFAULT '',
		opened_at   TEXT NOT NULL,
		closed_at   TEXT,
		ledger_seq  INTEGER NOT NULL DEFAULT 0
	);

	-- CRITICAL: at most one open tab per player
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tabs_one_open
		ON tabs(player_id) WHERE status = 'open';

	CREATE INDEX IF NOT EXISTS idx_tabs_event ON tabs(event_id);
	CREATE INDEX IF NOT EXISTS idx_tabs_player ON tabs(player_id);

	-- Tab items; repeats are separate rows, order by created_at
	CREATE TABLE IF NOT EXISTS tab_items (
		id               TEXT PRIMARY KEY,
		tab_id           TEXT NOT NULL REFERENCES tabs(id),
		product_id       TEXT NOT NULL DEFAULT '',
		category         TEXT NOT NULL DEFAULT '',
		name             TEXT NOT NULL DEFAULT '',
		note             TEXT NOT NULL DEFAULT '',
		unit_price_cents INTEGER NOT NULL,
		created_at       TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tab_items_tab ON tab_items(tab_id, created_at);

	-- Applied ledger movements (idempotency record)
	CREATE TABLE IF NOT EXISTS ledger_movements (
		idempotency_key TEXT PRIMARY KEY,
		player_id       TEXT NOT NULL,
		direction       TEXT NOT NULL,
		amount_cents    INTEGER NOT NULL,
		reason          TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_player ON ledger_movements(player_id, created_at);

	-- Best-effort player notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id  TEXT NOT NULL,
		message    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MONEY CONVERSION
// =============================================================================

var centFactor = decimal.NewFromInt(100)

func toCents(d decimal.Decimal) int64 {
	return d.Round(2).Mul(centFactor).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// =============================================================================
// TAB STORE (comanda.TabStore interface)
// =============================================================================

// CreateTab persists a new tab. The idx_tabs_one_open unique index is the
// race-proof backstop for the one-open-tab invariant.
func (s *Store) CreateTab(ctx context.Context, tab *comanda.Tab) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tabs (id, event_id, player_id, status, total_cents, opened_by, opened_at, closed_at, ledger_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		tab.ID, tab.EventID, tab.PlayerID, tab.Status, toCents(tab.Total),
		tab.OpenedBy, tab.OpenedAt.UTC().Format(time.RFC3339), tab.LedgerSeq,
	)
	if isUniqueConstraintError(err) {
		existing, ferr := s.FindOpenTab(ctx, tab.PlayerID)
		if ferr == nil && existing != nil {
			return &comanda.OpenTabError{PlayerID: tab.PlayerID, TabID: existing.ID}
		}
		return &comanda.OpenTabError{PlayerID: tab.PlayerID}
	}
	if err != nil {
		return fmt.Errorf("failed to create tab: %w", err)
	}
	return nil
}

// FindOpenTab returns the player's open tab, or nil.
func (s *Store) FindOpenTab(ctx context.Context, playerID comanda.PlayerID) (*comanda.Tab, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, player_id, status, total_cents, opened_by, opened_at, closed_at, ledger_seq
		FROM tabs WHERE player_id = ? AND status = 'open'`, playerID)

	tab, err := scanTab(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return tab, err
}

// GetTab returns a tab by ID.
func (s *Store) GetTab(ctx context.Context, id comanda.TabID) (*comanda.Tab, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, player_id, status, total_cents, opened_by, opened_at, closed_at, ledger_seq
		FROM tabs WHERE id = ?`, id)

	tab, err := scanTab(row)
	if err == sql.ErrNoRows {
		return nil, comanda.ErrTabNotFound
	}
	return tab, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTab(row rowScanner) (*comanda.Tab, error) {
	var (
		tab        comanda.Tab
		totalCents int64
		openedAt   string
		closedAt   sql.NullString
	)
	err := row.Scan(&tab.ID, &tab.EventID, &tab.PlayerID, &tab.Status, &totalCents,
		&tab.OpenedBy, &openedAt, &closedAt, &tab.LedgerSeq)
	if err != nil {
		return nil, err
	}

	tab.Total = fromCents(totalCents)
	tab.OpenedAt, _ = time.Parse(time.RFC3339, openedAt)
	if closedAt.Valid {
		t, perr := time.Parse(time.RFC3339, closedAt.String)
		if perr == nil {
			tab.ClosedAt = &t
		}
	}
	return &tab, nil
}

// Items returns the tab's items ordered by creation time.
func (s *Store) Items(ctx context.Context, id comanda.TabID) ([]comanda.TabItem, error) {
	if _, err := s.GetTab(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tab_id, product_id, category, name, note, unit_price_cents, created_at
		FROM tab_items WHERE tab_id = ?
		ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tab items: %w", err)
	}
	defer rows.Close()

	var items []comanda.TabItem
	for rows.Next() {
		var (
			it         comanda.TabItem
			priceCents int64
			createdAt  string
		)
		if err := rows.Scan(&it.ID, &it.TabID, &it.ProductID, &it.Category,
			&it.Name, &it.Note, &priceCents, &createdAt); err != nil {
			return nil, err
		}
		it.UnitPrice = fromCents(priceCents)
		it.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// AppendItem inserts the item and sets the running total in one SQL
// transaction. The status guard catches a tab closed by another process
// between the controller's check and this write.
func (s *Store) AppendItem(ctx context.Context, id comanda.TabID, item comanda.TabItem, newTotal decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tabs SET total_cents = ? WHERE id = ? AND status = 'open'`,
		toCents(newTotal), id)
	if err != nil {
		return fmt.Errorf("failed to update tab total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Probe inside the transaction: the pool has a single connection.
		var status string
		serr := tx.QueryRowContext(ctx, `SELECT status FROM tabs WHERE id = ?`, id).Scan(&status)
		if serr == sql.ErrNoRows {
			return comanda.ErrTabNotFound
		}
		if serr != nil {
			return fmt.Errorf("failed to check tab status: %w", serr)
		}
		return comanda.ErrTabNotOpen
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tab_items (id, tab_id, product_id, category, name, note, unit_price_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, id, item.ProductID, item.Category, item.Name, item.Note,
		toCents(item.UnitPrice), item.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tab item: %w", err)
	}

	return tx.Commit()
}

// SetStatus flips the tab status and persists the ledger sequence.
func (s *Store) SetStatus(ctx context.Context, id comanda.TabID, status comanda.TabStatus, closedAt *time.Time, ledgerSeq int) error {
	var closed any
	if closedAt != nil {
		closed = closedAt.UTC().Format(time.RFC3339)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tabs SET status = ?, closed_at = ?, ledger_seq = ? WHERE id = ?`,
		status, closed, ledgerSeq, id)
	if err != nil {
		return fmt.Errorf("failed to set tab status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return comanda.ErrTabNotFound
	}
	return nil
}

// SetTotal overwrites the running total. Admin reconciliation only.
func (s *Store) SetTotal(ctx context.Context, id comanda.TabID, total decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tabs SET total_cents = ? WHERE id = ?`, toCents(total), id)
	if err != nil {
		return fmt.Errorf("failed to set tab total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return comanda.ErrTabNotFound
	}
	return nil
}

// ListTabs returns tabs matching the filter, newest first.
func (s *Store) ListTabs(ctx context.Context, filter comanda.TabFilter) ([]comanda.Tab, error) {
	query := `
		SELECT id, event_id, player_id, status, total_cents, opened_by, opened_at, closed_at, ledger_seq
		FROM tabs WHERE 1=1`
	var args []any
	if filter.EventID != "" {
		query += " AND event_id = ?"
		args = append(args, filter.EventID)
	}
	if filter.PlayerID != "" {
		query += " AND player_id = ?"
		args = append(args, filter.PlayerID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY opened_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	defer rows.Close()

	var tabs []comanda.Tab
	for rows.Next() {
		tab, err := scanTab(rows)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, *tab)
	}
	return tabs, rows.Err()
}

// =============================================================================
// ACCOUNT LEDGER (comanda.AccountLedger interface)
// =============================================================================

// Credit unconditionally increases the balance, once per idempotency key.
func (s *Store) Credit(ctx context.Context, playerID comanda.PlayerID, amount decimal.Decimal, key, reason string) error {
	if !amount.IsPositive() {
		return comanda.ErrInvalidAmount
	}
	return s.applyMovement(ctx, playerID, amount, key, reason, "credit")
}

// Debit decreases the balance only if it covers the amount, as a single
// conditional update. Nothing moves on shortage.
func (s *Store) Debit(ctx context.Context, playerID comanda.PlayerID, amount decimal.Decimal, key, reason string) error {
	if !amount.IsPositive() {
		return comanda.ErrInvalidAmount
	}
	return s.applyMovement(ctx, playerID, amount, key, reason, "debit")
}

func (s *Store) applyMovement(ctx context.Context, playerID comanda.PlayerID, amount decimal.Decimal, key, reason, direction string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", comanda.ErrLedgerUnavailable, err)
	}
	defer tx.Rollback()

	// Idempotency record first: a replayed key inserts nothing and the
	// whole movement is reported as already applied.
	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger_movements (idempotency_key, player_id, direction, amount_cents, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key, playerID, direction, toCents(amount), reason,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", comanda.ErrLedgerUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return comanda.ErrDuplicateMovement
	}

	cents := toCents(amount)
	if direction == "credit" {
		res, err = tx.ExecContext(ctx,
			`UPDATE players SET balance_cents = balance_cents + ? WHERE id = ?`,
			cents, playerID)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE players SET balance_cents = balance_cents - ? WHERE id = ? AND balance_cents >= ?`,
			cents, playerID, cents)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", comanda.ErrLedgerUnavailable, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		available, aerr := s.balanceIn(ctx, tx, playerID)
		if aerr != nil {
			return aerr
		}
		// Player exists but the balance did not cover the debit.
		return &comanda.InsufficientFundsError{
			PlayerID:  playerID,
			Available: available,
			Requested: amount,
		}
	}

	return tx.Commit()
}

// Balance returns the current balance. Display only.
func (s *Store) Balance(ctx context.Context, playerID comanda.PlayerID) (decimal.Decimal, error) {
	return s.balanceIn(ctx, s.db, playerID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) balanceIn(ctx context.Context, q querier, playerID comanda.PlayerID) (decimal.Decimal, error) {
	var cents int64
	err := q.QueryRowContext(ctx,
		`SELECT balance_cents FROM players WHERE id = ?`, playerID).Scan(&cents)
	if err == sql.ErrNoRows {
		return decimal.Zero, comanda.ErrPlayerNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", comanda.ErrLedgerUnavailable, err)
	}
	return fromCents(cents), nil
}

// =============================================================================
// PLAYER DIRECTORY (comanda.PlayerDirectory interface)
// =============================================================================

// SavePlayer inserts or updates a player record. The balance seeds new
// accounts only; existing balances move through the ledger.
func (s *Store) SavePlayer(ctx context.Context, p comanda.Player, balance decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, vip_tier, balance_cents, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, vip_tier = excluded.vip_tier`,
		p.ID, p.Name, p.Tier, toCents(balance), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

func (s *Store) Player(ctx context.Context, id comanda.PlayerID) (*comanda.Player, error) {
	var p comanda.Player
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, vip_tier FROM players WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Tier)
	if err == sql.ErrNoRows {
		return nil, comanda.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

func (s *Store) SearchPlayers(ctx context.Context, query string) ([]comanda.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, vip_tier FROM players
		WHERE name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY name ASC`, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search players: %w", err)
	}
	defer rows.Close()

	var players []comanda.Player
	for rows.Next() {
		var p comanda.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Tier); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// =============================================================================
// CATALOG (catalog.Catalog interface)
// =============================================================================

// SaveProduct inserts or updates a catalog product.
func (s *Store) SaveProduct(ctx context.Context, p comanda.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, category, name, base_price_cents, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category, name = excluded.name,
			base_price_cents = excluded.base_price_cents, active = excluded.active`,
		p.ID, p.Category, p.Name, toCents(p.BasePrice), boolToInt(p.Active),
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (s *Store) ActiveProducts(ctx context.Context) ([]comanda.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, name, base_price_cents FROM products
		WHERE active = 1 ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []comanda.Product
	for rows.Next() {
		var (
			p     comanda.Product
			cents int64
		)
		if err := rows.Scan(&p.ID, &p.Category, &p.Name, &cents); err != nil {
			return nil, err
		}
		p.BasePrice = fromCents(cents)
		p.Active = true
		products = append(products, p)
	}
	return products, rows.Err()
}

// SaveEvent inserts or updates an event's add-on configuration.
func (s *Store) SaveEvent(ctx context.Context, id, name string, cfg catalog.EventConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, name, buyin, staff, rebuy, addon, double_rebuy, double_addon, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, buyin = excluded.buyin, staff = excluded.staff,
			rebuy = excluded.rebuy, addon = excluded.addon,
			double_rebuy = excluded.double_rebuy, double_addon = excluded.double_addon`,
		id, name, cfg.BuyIn, cfg.Staff, cfg.Rebuy, cfg.AddOn,
		cfg.DoubleRebuy, cfg.DoubleAddOn, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// TournamentAddOns synthesizes add-ons from the event configuration.
func (s *Store) TournamentAddOns(ctx context.Context, eventID string) ([]comanda.AddOn, error) {
	var cfg catalog.EventConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT buyin, staff, rebuy, addon, double_rebuy, double_addon
		FROM events WHERE id = ?`, eventID).
		Scan(&cfg.BuyIn, &cfg.Staff, &cfg.Rebuy, &cfg.AddOn, &cfg.DoubleRebuy, &cfg.DoubleAddOn)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event %s: %w", eventID, catalog.ErrEventNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return catalog.SynthesizeAddOns(cfg)
}

// =============================================================================
// NOTIFIER (comanda.Notifier interface)
// =============================================================================

// Notify appends to the notification log.
func (s *Store) Notify(ctx context.Context, playerID comanda.PlayerID, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (player_id, message, created_at)
		VALUES (?, ?, ?)`,
		playerID, message, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// Notifications returns the player's messages, newest first.
func (s *Store) Notifications(ctx context.Context, playerID comanda.PlayerID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message FROM notifications WHERE player_id = ?
		ORDER BY id DESC`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
