package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tazzio/internal/core"
	"tazzio/internal/session"
	"tazzio/internal/store"
	"tazzio/internal/store/memory"
)

var errBoom = errors.New("boom")

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// faultyRemote fails the named calls with the configured error.
type faultyRemote struct {
	*memory.Store

	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
}

func newFaulty(m *memory.Store) *faultyRemote {
	return &faultyRemote{Store: m, fail: map[string]error{}, calls: map[string]int{}}
}

func (f *faultyRemote) failOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, method)
		return
	}
	f.fail[method] = err
}

func (f *faultyRemote) hit(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.fail[method]
}

func (f *faultyRemote) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *faultyRemote) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	if err := f.hit("GetSettings"); err != nil {
		return core.Settings{}, err
	}
	return f.Store.GetSettings(ctx, userID)
}

func (f *faultyRemote) PatchSettings(ctx context.Context, userID string, p store.SettingsPatch) (core.Settings, error) {
	if err := f.hit("PatchSettings"); err != nil {
		return core.Settings{}, err
	}
	return f.Store.PatchSettings(ctx, userID, p)
}

func (f *faultyRemote) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := f.hit("InsertExpense"); err != nil {
		return core.Expense{}, err
	}
	return f.Store.InsertExpense(ctx, e)
}

func (f *faultyRemote) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := f.hit("DeleteExpense"); err != nil {
		return err
	}
	return f.Store.DeleteExpense(ctx, userID, id)
}

func (f *faultyRemote) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	if err := f.hit("ListExpenses"); err != nil {
		return nil, err
	}
	return f.Store.ListExpenses(ctx, userID)
}

type fixture struct {
	ctx     context.Context
	clock   *clock
	mem     *memory.Store
	remote  *faultyRemote
	session *session.Manager
	store   *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	mem := memory.New(memory.WithBcryptCost(bcrypt.MinCost), memory.WithClock(c.now))
	f := &fixture{
		ctx:    context.Background(),
		clock:  c,
		mem:    mem,
		remote: newFaulty(mem),
	}
	f.session = session.NewManager(f.remote, nil)
	f.store = New(f.remote, WithClock(c.now))
	detach := f.store.Attach(f.ctx, f.session)
	t.Cleanup(detach)
	return f
}

func (f *fixture) signIn(t *testing.T, email string) core.Identity {
	t.Helper()
	if _, err := f.session.SignUp(f.ctx, email, "secret1", ""); err != nil && session.KindOf(err) != session.KindEmailTaken {
		require.NoError(t, err)
	}
	id, err := f.session.SignIn(f.ctx, email, "secret1")
	require.NoError(t, err)
	return id
}

func (f *fixture) add(t *testing.T, amount string, category, buyer string, date core.Date) core.Expense {
	t.Helper()
	e, err := f.store.AddExpense(f.ctx, ExpenseInput{
		Amount:     core.MustParseMoney(amount),
		CategoryID: category,
		BuyerID:    buyer,
		Date:       date,
	})
	require.NoError(t, err)
	return e
}

func TestSignInLoadsDefaults(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, StateUninitialized, f.store.State())

	id := f.signIn(t, "alice@example.com")

	assert.Equal(t, StateReady, f.store.State())
	assert.Equal(t, id.ID, f.store.UserID())
	snap := f.store.Snapshot()
	assert.Len(t, snap.Settings.Categories, 8)
	assert.Len(t, snap.Settings.Buyers, 2)
	assert.Equal(t, core.LanguageFrench, snap.Settings.Language)
	assert.Equal(t, "€", snap.Settings.Currency)
	assert.Empty(t, snap.Expenses)

	// Defaults were persisted for the next load.
	persisted, err := f.mem.GetSettings(f.ctx, id.ID)
	require.NoError(t, err)
	assert.Len(t, persisted.Buyers, 2)
}

func TestSignOutResetsState(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.add(t, "12.00", "food", "1", core.NewDate(2024, 3, 2))

	require.NoError(t, f.session.SignOut(f.ctx))

	assert.Equal(t, StateUninitialized, f.store.State())
	assert.Empty(t, f.store.UserID())
	snap := f.store.Snapshot()
	assert.Empty(t, snap.Expenses)
	assert.Empty(t, snap.Settings.Buyers)

	_, err := f.store.AddExpense(f.ctx, ExpenseInput{Amount: core.NewMoney(100), CategoryID: "food", BuyerID: "1"})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestIdentitiesDoNotShareState(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.add(t, "30.00", "food", "1", core.NewDate(2024, 3, 3))
	require.NoError(t, f.session.SignOut(f.ctx))

	f.signIn(t, "bob@example.com")
	assert.Empty(t, f.store.Snapshot().Expenses)
}

func TestLoadFailureLeavesStoreUninitialized(t *testing.T) {
	f := newFixture(t)
	f.remote.failOn("ListExpenses", errBoom)
	f.signIn(t, "alice@example.com")
	assert.Equal(t, StateUninitialized, f.store.State())

	f.remote.failOn("ListExpenses", nil)
	require.NoError(t, f.store.Reload(f.ctx))
	assert.Equal(t, StateReady, f.store.State())
}

func TestAddExpenseRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	e := f.add(t, "42.50", "food", "1", core.NewDate(2024, 3, 15))
	assert.NotEmpty(t, e.ID)

	snap := f.store.Snapshot()
	require.Len(t, snap.Expenses, 1)
	got := snap.Expenses[0]
	assert.Equal(t, e.ID, got.ID)
	assert.True(t, got.Amount.Equal(core.MustParseMoney("42.50")))
	assert.Equal(t, "2024-03-15", got.Date.String())
	assert.Equal(t, "42.50 €", snap.FormatAmount(snap.TotalExpensesThisMonth()))
}

func TestAddExpenseDefaultsDateToToday(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	e := f.add(t, "5", "transport", "2", core.Date{})
	assert.Equal(t, "2024-03-15", e.Date.String())
}

func TestAddExpenseValidation(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	tests := []struct {
		name  string
		in    ExpenseInput
		field string
	}{
		{"missing amount", ExpenseInput{CategoryID: "food", BuyerID: "1"}, "amount"},
		{"negative amount", ExpenseInput{Amount: core.NewMoney(-100), CategoryID: "food", BuyerID: "1"}, "amount"},
		{"sub-cent amount", ExpenseInput{Amount: core.MustParseMoney("3.999"), CategoryID: "food", BuyerID: "1"}, "amount"},
		{"missing category", ExpenseInput{Amount: core.NewMoney(100), BuyerID: "1"}, "categoryId"},
		{"missing buyer", ExpenseInput{Amount: core.NewMoney(100), CategoryID: "food"}, "buyerId"},
		{"unknown category", ExpenseInput{Amount: core.NewMoney(100), CategoryID: "yachts", BuyerID: "1"}, "categoryId"},
		{"unknown buyer", ExpenseInput{Amount: core.NewMoney(100), CategoryID: "food", BuyerID: "9"}, "buyerId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.store.AddExpense(f.ctx, tt.in)
			var ve *core.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Zero(t, f.remote.count("InsertExpense"))
	assert.Empty(t, f.store.Snapshot().Expenses)
}

func TestAddExpenseRemoteFailureLeavesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.remote.failOn("InsertExpense", errBoom)

	_, err := f.store.AddExpense(f.ctx, ExpenseInput{Amount: core.NewMoney(100), CategoryID: "food", BuyerID: "1"})
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.store.Snapshot().Expenses)
}

func TestAddExpenseFallsBackWhenReloadFails(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.remote.failOn("ListExpenses", errBoom)

	e := f.add(t, "9.99", "food", "1", core.NewDate(2024, 3, 10))
	snap := f.store.Snapshot()
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, e.ID, snap.Expenses[0].ID)
}

func TestExpensesStayOrderedByDate(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.add(t, "1", "food", "1", core.NewDate(2024, 3, 5))
	f.add(t, "2", "food", "1", core.NewDate(2024, 3, 12))
	f.add(t, "3", "food", "1", core.NewDate(2024, 2, 28))

	var dates []string
	for _, e := range f.store.Snapshot().Expenses {
		dates = append(dates, e.Date.String())
	}
	assert.Equal(t, []string{"2024-03-12", "2024-03-05", "2024-02-28"}, dates)
}

func TestUpdateExpense(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	e := f.add(t, "10", "food", "1", core.NewDate(2024, 3, 1))

	updated, err := f.store.UpdateExpense(f.ctx, e.ID, ExpenseInput{
		Amount:      core.NewMoney(2500),
		CategoryID:  "health",
		BuyerID:     "2",
		Description: "pharmacy",
		Date:        core.NewDate(2024, 3, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, e.CreatedAt, updated.CreatedAt)

	snap := f.store.Snapshot()
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, "health", snap.Expenses[0].CategoryID)
	assert.Equal(t, "pharmacy", snap.Expenses[0].Description)

	_, err = f.store.UpdateExpense(f.ctx, "missing", ExpenseInput{Amount: core.NewMoney(1), CategoryID: "food", BuyerID: "1"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteExpense(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	keep := f.add(t, "10", "food", "1", core.NewDate(2024, 3, 1))
	drop := f.add(t, "20", "food", "1", core.NewDate(2024, 3, 2))

	require.NoError(t, f.store.DeleteExpense(f.ctx, drop.ID))
	snap := f.store.Snapshot()
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, keep.ID, snap.Expenses[0].ID)

	err := f.store.DeleteExpense(f.ctx, "does-not-exist")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Len(t, f.store.Snapshot().Expenses, 1)
}

func TestBuyerIncomeTotals(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	require.NoError(t, f.store.UpdateBuyerIncome(f.ctx, "1", core.MustParseMoney("1200")))
	require.NoError(t, f.store.UpdateBuyerIncome(f.ctx, "2", core.MustParseMoney("800")))
	assert.Equal(t, "2000.00", f.store.Snapshot().TotalIncome().String())

	require.NoError(t, f.store.UpdateBuyerIncome(f.ctx, "2", core.MustParseMoney("1000")))
	assert.Equal(t, "2200.00", f.store.Snapshot().TotalIncome().String())

	err := f.store.UpdateBuyerIncome(f.ctx, "1", core.NewMoney(-1))
	assert.ErrorIs(t, err, core.ErrValidation)
	err = f.store.UpdateBuyerIncome(f.ctx, "ghost", core.NewMoney(100))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBuyers(t *testing.T) {
	f := newFixture(t)
	id := f.signIn(t, "alice@example.com")

	b, err := f.store.AddBuyer(f.ctx, "  Grandma ")
	require.NoError(t, err)
	assert.Equal(t, "Grandma", b.Name)
	require.NoError(t, f.store.UpdateBuyerIncome(f.ctx, b.ID, core.NewMoney(50000)))
	require.NoError(t, f.store.UpdateBuyer(f.ctx, b.ID, "Nonna"))

	snap := f.store.Snapshot()
	assert.Equal(t, "Nonna", snap.BuyerName(b.ID))
	assert.Equal(t, "500.00", snap.TotalIncome().String())

	require.NoError(t, f.store.RemoveBuyer(f.ctx, b.ID))
	snap = f.store.Snapshot()
	assert.Len(t, snap.Settings.Buyers, 2)
	_, ok := snap.Settings.BuyerIncomes[b.ID]
	assert.False(t, ok)
	assert.True(t, snap.TotalIncome().IsZero())

	require.NoError(t, f.store.RemoveBuyer(f.ctx, "2"))
	err = f.store.RemoveBuyer(f.ctx, "1")
	assert.ErrorIs(t, err, ErrLastBuyer)
	assert.Equal(t, "warning.lastBuyer", WarningKey(err))

	persisted, err := f.mem.GetSettings(f.ctx, id.ID)
	require.NoError(t, err)
	assert.Len(t, persisted.Buyers, 1)
}

func TestRemovedBuyerKeepsExpenses(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.add(t, "15", "food", "2", core.NewDate(2024, 3, 4))

	require.NoError(t, f.store.RemoveBuyer(f.ctx, "2"))
	snap := f.store.Snapshot()
	assert.Equal(t, "", snap.BuyerName("2"))
	assert.Equal(t, "15.00", snap.ExpensesByBuyer()["2"].String())
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	c, err := f.store.AddCategory(f.ctx, "Pets", "", "")
	require.NoError(t, err)
	assert.Equal(t, "📦", c.Icon)
	assert.Equal(t, "#E6D5C3", c.Color)
	require.NoError(t, f.store.RenameCategory(f.ctx, c.ID, "Animals"))
	require.NoError(t, f.store.UpdateBudget(f.ctx, c.ID, core.NewMoney(3000)))
	assert.Equal(t, "Animals", f.store.Snapshot().CategoryName(c.ID))

	e := f.add(t, "12", c.ID, "1", core.NewDate(2024, 3, 9))
	err = f.store.RemoveCategory(f.ctx, c.ID)
	assert.ErrorIs(t, err, ErrCategoryInUse)

	require.NoError(t, f.store.DeleteExpense(f.ctx, e.ID))
	require.NoError(t, f.store.RemoveCategory(f.ctx, c.ID))
	snap := f.store.Snapshot()
	assert.Equal(t, "", snap.CategoryName(c.ID))
	_, ok := snap.Settings.Budgets[c.ID]
	assert.False(t, ok)

	assert.ErrorIs(t, f.store.RemoveCategory(f.ctx, c.ID), store.ErrNotFound)
}

func TestRemoveCategoryInUseAfterFailedLoad(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.add(t, "8.40", "food", "1", core.NewDate(2024, 3, 10))
	require.NoError(t, f.session.SignOut(f.ctx))

	f.remote.failOn("ListExpenses", errBoom)
	f.signIn(t, "alice@example.com")
	require.Equal(t, StateUninitialized, f.store.State())
	f.remote.failOn("ListExpenses", nil)

	err := f.store.RemoveCategory(f.ctx, "food")
	assert.ErrorIs(t, err, ErrCategoryInUse)
	assert.Equal(t, 0, f.remote.count("PatchSettings"))

	assert.Equal(t, StateReady, f.store.State())
	snap := f.store.Snapshot()
	assert.Equal(t, "Alimentation", snap.CategoryName("food"))
	assert.Len(t, snap.Expenses, 1)
}

func TestUpdateBudget(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	require.NoError(t, f.store.UpdateBudget(f.ctx, "food", core.NewMoney(40000)))
	require.NoError(t, f.store.UpdateBudget(f.ctx, "transport", core.NewMoney(10000)))
	require.NoError(t, f.store.UpdateBudget(f.ctx, "food", core.NewMoney(0)))

	snap := f.store.Snapshot()
	assert.Equal(t, "100.00", snap.TotalBudget().String())
	assert.ErrorIs(t, f.store.UpdateBudget(f.ctx, "food", core.NewMoney(-1)), core.ErrValidation)
	assert.ErrorIs(t, f.store.UpdateBudget(f.ctx, "food", core.MustParseMoney("10.125")), core.ErrValidation)
	assert.Equal(t, "100.00", f.store.Snapshot().TotalBudget().String())
}

func TestSavingsGoals(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	g, err := f.store.AddSavingsGoal(f.ctx, "Vacances", core.MustParseMoney("1000"), "summer")
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())

	g, err = f.store.UpdateSavingsGoal(f.ctx, g.ID, core.MustParseMoney("300"))
	require.NoError(t, err)
	g, err = f.store.UpdateSavingsGoal(f.ctx, g.ID, core.MustParseMoney("300"))
	require.NoError(t, err)
	assert.Equal(t, "600.00", g.CurrentAmount.String())
	assert.False(t, g.Completed())

	g, err = f.store.UpdateSavingsGoal(f.ctx, g.ID, core.MustParseMoney("500"))
	require.NoError(t, err)
	assert.Equal(t, "1100.00", g.CurrentAmount.String())
	assert.True(t, g.Completed())
	assert.InDelta(t, 110.0, g.Progress(), 0.001)

	_, err = f.store.UpdateSavingsGoal(f.ctx, g.ID, core.Zero)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = f.store.AddSavingsGoal(f.ctx, "Nothing", core.Zero, "")
	assert.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, f.store.RemoveSavingsGoal(f.ctx, g.ID))
	assert.Empty(t, f.store.Snapshot().Settings.SavingsGoals)
	assert.ErrorIs(t, f.store.RemoveSavingsGoal(f.ctx, g.ID), store.ErrNotFound)
}

func TestPreferences(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	require.NoError(t, f.store.SetLanguage(f.ctx, "en-GB"))
	require.NoError(t, f.store.SetCurrency(f.ctx, " $ "))
	snap := f.store.Snapshot()
	assert.Equal(t, core.LanguageEnglish, snap.Settings.Language)
	assert.Equal(t, "12.50 $", snap.FormatAmount(core.NewMoney(1250)))
	assert.Equal(t, "On track", f.store.Translate("budget.status.safe"))
	assert.Equal(t, "no.such.key", f.store.Translate("no.such.key"))

	assert.ErrorIs(t, f.store.SetLanguage(f.ctx, "de"), core.ErrValidation)
	assert.ErrorIs(t, f.store.SetCurrency(f.ctx, "  "), core.ErrValidation)
	assert.Equal(t, core.LanguageEnglish, f.store.Snapshot().Settings.Language)
}

func TestSettingsRemoteFailureLeavesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.remote.failOn("PatchSettings", errBoom)

	err := f.store.UpdateBuyerIncome(f.ctx, "1", core.NewMoney(100))
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.True(t, f.store.Snapshot().TotalIncome().IsZero())
}

func TestExpiredSessionDuringMutation(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.remote.failOn("PatchSettings", store.ErrSessionExpired)

	err := f.store.SetCurrency(f.ctx, "$")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	_, ok := f.session.Current()
	assert.False(t, ok)
	assert.Equal(t, StateUninitialized, f.store.State())
}

// blockingRemote parks InsertExpense until released.
type blockingRemote struct {
	*faultyRemote
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRemote) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	close(b.entered)
	<-b.release
	return b.faultyRemote.InsertExpense(ctx, e)
}

func TestSignOutDiscardsInFlightResult(t *testing.T) {
	f := newFixture(t)
	br := &blockingRemote{faultyRemote: f.remote, entered: make(chan struct{}), release: make(chan struct{})}
	st := New(br, WithClock(f.clock.now))
	detach := st.Attach(f.ctx, f.session)
	defer detach()
	f.signIn(t, "alice@example.com")
	require.Equal(t, StateReady, st.State())

	errc := make(chan error, 1)
	go func() {
		_, err := st.AddExpense(f.ctx, ExpenseInput{Amount: core.NewMoney(100), CategoryID: "food", BuyerID: "1"})
		errc <- err
	}()
	<-br.entered
	require.NoError(t, f.session.SignOut(f.ctx))
	close(br.release)

	assert.ErrorIs(t, <-errc, ErrStaleSession)
	assert.Equal(t, StateUninitialized, st.State())
	assert.Empty(t, st.Snapshot().Expenses)
}

func TestConcurrentMutationsAreSerialised(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.AddBuyer(f.ctx, "buyer")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, f.store.Snapshot().Settings.Buyers, 12)
}

func TestMonthRollsOverWithClock(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@example.com")
	f.add(t, "25", "food", "1", core.NewDate(2024, 3, 31))
	assert.Equal(t, "25.00", f.store.Snapshot().TotalExpensesThisMonth().String())

	f.clock.set(time.Date(2024, 4, 1, 0, 0, 1, 0, time.UTC))
	snap := f.store.Snapshot()
	assert.True(t, snap.TotalExpensesThisMonth().IsZero())
	assert.Empty(t, snap.ExpensesByCategory())
	assert.Len(t, snap.Expenses, 1)
}
