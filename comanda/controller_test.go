package comanda_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/comanda-engine/comanda"
	"github.com/warp/comanda-engine/comanda/store"
)

// =============================================================================
// FIXTURES
// =============================================================================

type fixture struct {
	tabs     *store.MemoryTabStore
	players  *store.MemoryDirectory
	ledger   *store.MemoryLedger
	notifier *store.MemoryNotifier
	ctrl     *comanda.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tabs:     store.NewMemoryTabStore(),
		players:  store.NewMemoryDirectory(),
		ledger:   store.NewMemoryLedger(),
		notifier: store.NewMemoryNotifier(),
	}
	f.ctrl = comanda.NewController(f.tabs, f.players, f.ledger, f.notifier, nil)
	return f
}

func (f *fixture) addPlayer(id comanda.PlayerID, tier comanda.VIPTier, balance string) {
	f.players.PutPlayer(comanda.Player{ID: id, Name: "Player " + string(id), Tier: tier})
	f.ledger.SetBalance(id, d(balance))
}

func beer(price string) comanda.Product {
	return comanda.Product{ID: "p-beer", Category: comanda.CategoryBar, Name: "Cerveja", BasePrice: d(price), Active: true}
}

func janta(price string) comanda.Product {
	return comanda.Product{ID: "p-janta", Category: comanda.CategoryBar, Name: "Janta Executiva", BasePrice: d(price), Active: true}
}

// waitNotifications polls until the async notifier has delivered n messages.
func (f *fixture) waitNotifications(t *testing.T, n int) []store.Notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sent := f.notifier.Sent(); len(sent) >= n {
			return sent
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d notifications", n)
	return nil
}

// =============================================================================
// OPEN
// =============================================================================

func TestOpen_CreatesEmptyOpenTab(t *testing.T) {
	// GIVEN a registered player with no open tab
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")

	// WHEN a tab is opened
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "operator-1")

	// THEN it starts open and empty
	require.NoError(t, err)
	assert.Equal(t, comanda.StatusOpen, tab.Status)
	assert.True(t, tab.Total.IsZero())
	assert.Equal(t, "operator-1", tab.OpenedBy)
	assert.NotEmpty(t, tab.ID)
	assert.Nil(t, tab.ClosedAt)
}

func TestOpen_RejectsSecondOpenTab(t *testing.T) {
	// GIVEN a player with an open tab
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	first, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	// WHEN a second open is attempted
	_, err = f.ctrl.Open(context.Background(), "event-1", "alice", "op")

	// THEN it fails and names the existing tab
	require.Error(t, err)
	var openErr *comanda.OpenTabError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, first.ID, openErr.TabID)
	assert.True(t, errors.Is(err, comanda.ErrOpenTabExists))
}

func TestOpen_AllowedAfterClose(t *testing.T) {
	// GIVEN a player whose previous tab was closed
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)

	// WHEN a new tab is opened
	_, err = f.ctrl.Open(context.Background(), "event-2", "alice", "op")

	// THEN it succeeds
	require.NoError(t, err)
}

func TestOpen_UnknownPlayer(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.Open(context.Background(), "event-1", "ghost", "op")

	assert.True(t, errors.Is(err, comanda.ErrPlayerNotFound))
}

// =============================================================================
// ADD ITEM
// =============================================================================

func TestAddProduct_ChargesTierPriceAndKeepsTotalInSync(t *testing.T) {
	// GIVEN an open tab owned by a vip_anual player
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierAnual, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	// WHEN bar products are added
	item, err := f.ctrl.AddProduct(context.Background(), tab.ID, beer("20"))
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, beer("20"))
	require.NoError(t, err)

	// THEN each line carries the discounted price and the total tracks the sum
	assert.True(t, d("16.00").Equal(item.UnitPrice), "got %s", item.UnitPrice)

	got, err := f.tabs.GetTab(context.Background(), tab.ID)
	require.NoError(t, err)
	items, err := f.tabs.Items(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, got.Total.Equal(comanda.SumItems(items)),
		"total %s != sum %s", got.Total, comanda.SumItems(items))
	assert.True(t, d("32.00").Equal(got.Total))
}

func TestAddProduct_RepeatableItemsAppendSeparateRows(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.ctrl.AddProduct(context.Background(), tab.ID, beer("10"))
		require.NoError(t, err)
	}

	items, err := f.tabs.Items(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestAddProduct_OneTimeItemRejectedOnRepeat(t *testing.T) {
	// GIVEN a tab that already holds a janta
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)

	// WHEN a second janta is added
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))

	// THEN it is rejected and the tab is unchanged
	require.Error(t, err)
	var oneTime *comanda.OneTimeItemError
	require.ErrorAs(t, err, &oneTime)
	assert.Equal(t, comanda.KeyJanta, oneTime.Key)

	got, err := f.tabs.GetTab(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.True(t, d("30.00").Equal(got.Total))
}

func TestAddProduct_DistinctBetsAreIndependentlyOneTime(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	bet5 := comanda.Product{ID: "p-bet5", Category: comanda.CategoryBet, Name: "Bet R$ 5", BasePrice: d("5"), Active: true}
	bet10 := comanda.Product{ID: "p-bet10", Category: comanda.CategoryBet, Name: "Bet R$ 10", BasePrice: d("10"), Active: true}

	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, bet5)
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, bet10)
	require.NoError(t, err)

	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, bet5)
	var oneTime *comanda.OneTimeItemError
	assert.ErrorAs(t, err, &oneTime)
}

func TestAddProduct_InactiveProductRejected(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	inactive := beer("20")
	inactive.Active = false
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, inactive)

	assert.True(t, errors.Is(err, comanda.ErrInactiveProduct))
}

func TestAddProduct_ClosedTabRejected(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)

	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, beer("20"))

	assert.True(t, errors.Is(err, comanda.ErrTabNotOpen))
}

func TestAddAddOn_MasterStaffDiscountAndChipBonusNote(t *testing.T) {
	// GIVEN an open tab owned by a vip_master player
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierMaster, "500")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	// WHEN Staff and Add On add-ons are charged
	staff, err := f.ctrl.AddAddOn(context.Background(), tab.ID,
		comanda.AddOn{Name: "Staff", Price: d("40")})
	require.NoError(t, err)
	addOn, err := f.ctrl.AddAddOn(context.Background(), tab.ID,
		comanda.AddOn{Name: "Add On", Price: d("60"), ChipBonus: true})
	require.NoError(t, err)

	// THEN Staff gets the -10 discount, Add On keeps its price but the
	// note records the chip bonus
	assert.True(t, d("30.00").Equal(staff.UnitPrice))
	assert.True(t, d("60.00").Equal(addOn.UnitPrice))
	assert.Equal(t, "Add On (bônus de fichas)", addOn.Note)
	assert.True(t, addOn.IsAddOn())
}

func TestAddAddOn_BuyInOneTimePerTab(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "500")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	buyIn := comanda.AddOn{Name: "Buy In", Price: d("120")}
	_, err = f.ctrl.AddAddOn(context.Background(), tab.ID, buyIn)
	require.NoError(t, err)

	_, err = f.ctrl.AddAddOn(context.Background(), tab.ID, buyIn)
	var oneTime *comanda.OneTimeItemError
	require.ErrorAs(t, err, &oneTime)
	assert.Equal(t, comanda.KeyBuyIn, oneTime.Key)

	// Rebuy stays repeatable
	rebuy := comanda.AddOn{Name: "Rebuy", Price: d("100")}
	_, err = f.ctrl.AddAddOn(context.Background(), tab.ID, rebuy)
	require.NoError(t, err)
	_, err = f.ctrl.AddAddOn(context.Background(), tab.ID, rebuy)
	require.NoError(t, err)
}

func TestAddItem_TierReadAtChargeTime(t *testing.T) {
	// GIVEN a tab with an item charged under vip_master
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierMaster, "500")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	first, err := f.ctrl.AddProduct(context.Background(), tab.ID, beer("20"))
	require.NoError(t, err)

	// WHEN the tier lapses mid-tab
	f.players.PutPlayer(comanda.Player{ID: "alice", Name: "Player alice", Tier: comanda.TierNone})
	second, err := f.ctrl.AddProduct(context.Background(), tab.ID, beer("20"))
	require.NoError(t, err)

	// THEN the earlier line keeps its charged price; the later one uses
	// the new tier
	assert.True(t, d("10.00").Equal(first.UnitPrice))
	assert.True(t, d("20.00").Equal(second.UnitPrice))
}

// =============================================================================
// CLOSE
// =============================================================================

func TestClose_DebitsExactlyTotalAndNotifies(t *testing.T) {
	// GIVEN an open tab with a 30.00 total and a 100.00 balance
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)

	// WHEN the tab is closed
	closed, err := f.ctrl.Close(context.Background(), tab.ID)

	// THEN the balance drops by exactly the total and the tab flips
	require.NoError(t, err)
	assert.Equal(t, comanda.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	balance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("70.00").Equal(balance), "got %s", balance)

	sent := f.waitNotifications(t, 1)
	assert.Equal(t, comanda.PlayerID("alice"), sent[0].PlayerID)
	assert.Contains(t, sent[0].Message, "30.00")
	assert.Contains(t, sent[0].Message, "fechada")
}

func TestClose_InsufficientFundsLeavesTabUntouched(t *testing.T) {
	// GIVEN a tab whose total exceeds the owner's balance
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "10")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)

	// WHEN close is attempted
	_, err = f.ctrl.Close(context.Background(), tab.ID)

	// THEN the debit is rejected and nothing changed
	require.Error(t, err)
	var funds *comanda.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.True(t, d("10").Equal(funds.Available))
	assert.True(t, d("30.00").Equal(funds.Requested))

	got, err := f.tabs.GetTab(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.Equal(t, comanda.StatusOpen, got.Status)
	assert.True(t, d("30.00").Equal(got.Total))

	balance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("10").Equal(balance))
	assert.Empty(t, f.notifier.Sent())
}

func TestClose_ZeroTotalSkipsLedger(t *testing.T) {
	// GIVEN an empty open tab and a zero balance
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "0")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	// WHEN it is closed
	closed, err := f.ctrl.Close(context.Background(), tab.ID)

	// THEN it closes without touching the ledger
	require.NoError(t, err)
	assert.Equal(t, comanda.StatusClosed, closed.Status)
	balance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestClose_AlreadyClosedRejected(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)

	_, err = f.ctrl.Close(context.Background(), tab.ID)

	assert.True(t, errors.Is(err, comanda.ErrTabNotOpen))
}

// =============================================================================
// REOPEN
// =============================================================================

func TestReopen_RefundsTotalAndReopens(t *testing.T) {
	// GIVEN a closed tab that debited 30.00
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)

	// WHEN the tab is reopened
	reopened, err := f.ctrl.Reopen(context.Background(), tab.ID)

	// THEN the refund restores the balance, the tab is open again with its
	// items intact, and more items can be added
	require.NoError(t, err)
	assert.Equal(t, comanda.StatusOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)

	balance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("100.00").Equal(balance), "got %s", balance)

	items, err := f.tabs.Items(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, beer("10"))
	require.NoError(t, err)

	// Delivery is async and unordered between the two transitions.
	sent := f.waitNotifications(t, 2)
	var sawReopen bool
	for _, n := range sent {
		if strings.Contains(n.Message, "reaberta") {
			sawReopen = true
		}
	}
	assert.True(t, sawReopen)
}

func TestReopen_OneTimeKeysStillBlockAfterReopen(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)
	_, err = f.ctrl.Reopen(context.Background(), tab.ID)
	require.NoError(t, err)

	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))

	var oneTime *comanda.OneTimeItemError
	assert.ErrorAs(t, err, &oneTime)
}

func TestReopen_OpenTabRejected(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	_, err = f.ctrl.Reopen(context.Background(), tab.ID)

	assert.True(t, errors.Is(err, comanda.ErrTabNotClosed))
}

func TestReopen_ZeroTotalSkipsLedger(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "0")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)

	reopened, err := f.ctrl.Reopen(context.Background(), tab.ID)

	require.NoError(t, err)
	assert.Equal(t, comanda.StatusOpen, reopened.Status)
	balance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestCloseReopenClose_EachCycleMovesMoneyOnce(t *testing.T) {
	// Full cycle: close debits, reopen refunds, close debits again.
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)

	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)
	_, err = f.ctrl.Reopen(context.Background(), tab.ID)
	require.NoError(t, err)
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)

	balance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("70.00").Equal(balance), "got %s", balance)
}

// =============================================================================
// ADMIN: ADJUST TOTAL / TOP UP
// =============================================================================

func TestAdjustTotal_ClosedOnlyNoLedgerMovement(t *testing.T) {
	// GIVEN a closed tab
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)

	// WHEN the total is adjusted
	adjusted, err := f.ctrl.AdjustTotal(context.Background(), tab.ID, d("25"))

	// THEN the stored total changes but the balance does not
	require.NoError(t, err)
	assert.True(t, d("25").Equal(adjusted.Total))

	balance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("70.00").Equal(balance))
}

func TestAdjustTotal_Rejections(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	// Open tab: rejected
	_, err = f.ctrl.AdjustTotal(context.Background(), tab.ID, d("25"))
	assert.True(t, errors.Is(err, comanda.ErrTabNotClosed))

	// Negative total: rejected
	_, err = f.ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)
	_, err = f.ctrl.AdjustTotal(context.Background(), tab.ID, d("-1"))
	assert.True(t, errors.Is(err, comanda.ErrInvalidAmount))
}

func TestTopUp_CreditsBalanceAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "10")

	// First credit applies
	require.NoError(t, f.ctrl.TopUp(context.Background(), "alice", d("50"), "receipt-1"))
	balance, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("60").Equal(balance))

	// Replay of the same reference is a no-op, not an error
	require.NoError(t, f.ctrl.TopUp(context.Background(), "alice", d("50"), "receipt-1"))
	balance, err = f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("60").Equal(balance))
}

func TestTopUp_Rejections(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "10")

	assert.True(t, errors.Is(
		f.ctrl.TopUp(context.Background(), "alice", d("0"), ""), comanda.ErrInvalidAmount))
	assert.True(t, errors.Is(
		f.ctrl.TopUp(context.Background(), "alice", d("-5"), ""), comanda.ErrInvalidAmount))
	assert.True(t, errors.Is(
		f.ctrl.TopUp(context.Background(), "ghost", d("5"), ""), comanda.ErrPlayerNotFound))
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestAddProduct_ConcurrentOneTimeAdds_ExactlyOneWins(t *testing.T) {
	// GIVEN an open tab and two terminals adding the same one-time product
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")
	tab, err := f.ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
		}(i)
	}
	wg.Wait()

	// THEN exactly one add succeeds; the rest hit the one-time check
	var successes, blocked int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, comanda.ErrOneTimeItemUsed):
			blocked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, blocked)

	got, err := f.tabs.GetTab(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.True(t, d("30.00").Equal(got.Total))
}

func TestOpen_ConcurrentOpens_ExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.addPlayer("alice", comanda.TierNone, "100")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ctrl.Open(context.Background(), "event-1", "alice", "op")
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.True(t, errors.Is(err, comanda.ErrOpenTabExists), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
}

// =============================================================================
// IDEMPOTENT RETRY
// =============================================================================

// ambiguousLedger wraps the memory ledger and, when armed, applies the
// movement but still reports a failure, simulating a lost reply.
type ambiguousLedger struct {
	*store.MemoryLedger
	failNextDebit  bool
	failNextCredit bool
}

func (l *ambiguousLedger) Debit(ctx context.Context, playerID comanda.PlayerID, amount decimal.Decimal, key, reason string) error {
	err := l.MemoryLedger.Debit(ctx, playerID, amount, key, reason)
	if err == nil && l.failNextDebit {
		l.failNextDebit = false
		return comanda.ErrLedgerUnavailable
	}
	return err
}

func (l *ambiguousLedger) Credit(ctx context.Context, playerID comanda.PlayerID, amount decimal.Decimal, key, reason string) error {
	err := l.MemoryLedger.Credit(ctx, playerID, amount, key, reason)
	if err == nil && l.failNextCredit {
		l.failNextCredit = false
		return comanda.ErrLedgerUnavailable
	}
	return err
}

func TestClose_RetryAfterAmbiguousFailureDebitsOnce(t *testing.T) {
	// GIVEN a ledger whose first debit lands but reports failure
	tabs := store.NewMemoryTabStore()
	players := store.NewMemoryDirectory()
	ledger := &ambiguousLedger{MemoryLedger: store.NewMemoryLedger(), failNextDebit: true}
	ctrl := comanda.NewController(tabs, players, ledger, nil, nil)

	players.PutPlayer(comanda.Player{ID: "alice", Name: "Alice"})
	ledger.SetBalance("alice", d("100"))

	tab, err := ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)

	// WHEN the first close fails and the operator retries
	_, err = ctrl.Close(context.Background(), tab.ID)
	require.Error(t, err)

	closed, err := ctrl.Close(context.Background(), tab.ID)

	// THEN the retry replays the same movement key, the ledger reports the
	// duplicate, and the tab closes with the money moved exactly once
	require.NoError(t, err)
	assert.Equal(t, comanda.StatusClosed, closed.Status)

	balance, err := ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("70.00").Equal(balance), "got %s", balance)
}

func TestReopen_RetryAfterAmbiguousFailureRefundsOnce(t *testing.T) {
	tabs := store.NewMemoryTabStore()
	players := store.NewMemoryDirectory()
	ledger := &ambiguousLedger{MemoryLedger: store.NewMemoryLedger()}
	ctrl := comanda.NewController(tabs, players, ledger, nil, nil)

	players.PutPlayer(comanda.Player{ID: "alice", Name: "Alice"})
	ledger.SetBalance("alice", d("100"))

	tab, err := ctrl.Open(context.Background(), "event-1", "alice", "op")
	require.NoError(t, err)
	_, err = ctrl.AddProduct(context.Background(), tab.ID, janta("30"))
	require.NoError(t, err)
	_, err = ctrl.Close(context.Background(), tab.ID)
	require.NoError(t, err)

	ledger.failNextCredit = true
	_, err = ctrl.Reopen(context.Background(), tab.ID)
	require.Error(t, err)

	// The failed refund left the tab closed
	got, err := tabs.GetTab(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.Equal(t, comanda.StatusClosed, got.Status)

	reopened, err := ctrl.Reopen(context.Background(), tab.ID)
	require.NoError(t, err)
	assert.Equal(t, comanda.StatusOpen, reopened.Status)

	balance, err := ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d("100.00").Equal(balance), "got %s", balance)
}
