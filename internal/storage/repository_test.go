package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "saldo.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func seedCategory(t *testing.T, repo *SQLiteRepository, owner, name string) core.Category {
	t.Helper()
	c := core.Category{
		ID: core.NewID(), Owner: owner, Name: name, Kind: core.Expense,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.InsertCategory(context.Background(), c))
	return c
}

func TestCategoryNamesAreUniquePerOwnerIgnoringCase(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	seedCategory(t, repo, "alice", "Food")

	err := repo.InsertCategory(ctx, core.Category{
		ID: core.NewID(), Owner: "alice", Name: "FOOD", Kind: core.Expense, CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	// Another owner may reuse the name.
	seedCategory(t, repo, "bob", "food")

	got, err := repo.FindCategoryByName(ctx, "alice", "fOoD")
	require.NoError(t, err)
	assert.Equal(t, "Food", got.Name)

	owners, err := repo.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, owners)
}

func TestCategoryRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 30, 0, 123, time.UTC)
	c := core.Category{
		ID: core.NewID(), Owner: "alice", Name: "Salary", Kind: core.Income,
		Icon: "cash", IsSystemDefault: true, CreatedAt: created,
	}
	require.NoError(t, repo.InsertCategory(ctx, c))

	got, err := repo.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	c.Name, c.Icon = "Wages", "coin"
	require.NoError(t, repo.UpdateCategory(ctx, c))
	got, err = repo.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wages", got.Name)

	require.NoError(t, repo.DeleteCategory(ctx, c.ID))
	_, err = repo.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCategory(ctx, c.ID), core.ErrNotFound)
}

func TestSubcategoriesJoinOwnedCategories(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	food := seedCategory(t, repo, "alice", "Food")
	other := seedCategory(t, repo, "bob", "Food")

	require.NoError(t, repo.InsertSubcategory(ctx, core.Subcategory{ID: "s1", CategoryID: food.ID, Name: "Groceries"}))
	require.NoError(t, repo.InsertSubcategory(ctx, core.Subcategory{ID: "s2", CategoryID: other.ID, Name: "Groceries"}))
	err := repo.InsertSubcategory(ctx, core.Subcategory{ID: "s3", CategoryID: food.ID, Name: "groceries"})
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	subs, err := repo.ListSubcategories(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "s1", subs[0].ID)

	// Orphans only show up in the global listing.
	require.NoError(t, repo.DeleteCategory(ctx, other.ID))
	all, err := repo.AllSubcategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	cats, err := repo.AllCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestListTransactionsOrderAndWindow(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	insert := func(id string, date core.Date, kind core.Kind, created time.Time) {
		require.NoError(t, repo.InsertTransaction(ctx, core.Transaction{
			ID: id, Owner: "alice", CategoryID: "c1", Amount: core.Money{Cents: 100},
			Date: date, Kind: kind, CreatedAt: created,
		}))
	}
	insert("old", core.NewDate(2024, 2, 28), core.Expense, base)
	insert("a", core.NewDate(2024, 3, 5), core.Expense, base.Add(time.Second))
	insert("b", core.NewDate(2024, 3, 5), core.Income, base.Add(2*time.Second))
	insert("c", core.NewDate(2024, 3, 10), core.Expense, base)

	ids := func(txs []core.Transaction) []string {
		out := make([]string, len(txs))
		for i, tx := range txs {
			out[i] = tx.ID
		}
		return out
	}

	all, err := repo.ListTransactions(ctx, core.TransactionFilter{Owner: "alice"}, core.Range{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a", "old"}, ids(all))
	assert.Equal(t, "2024-03-10", all[0].Date.String())
	assert.Empty(t, all[0].SubcategoryID)

	start, end := core.MonthRange(2024, 3)
	march, err := repo.ListTransactions(ctx, core.TransactionFilter{Owner: "alice", Start: start, End: end}, core.Range{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(march))

	expenses, err := repo.ListTransactions(ctx, core.TransactionFilter{Owner: "alice", Kind: core.Expense}, core.Range{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(expenses))

	tail, err := repo.ListTransactions(ctx, core.TransactionFilter{Owner: "alice"}, core.Range{Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids(tail))

	none, err := repo.ListTransactions(ctx, core.TransactionFilter{Owner: "bob"}, core.Range{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpsertLimitKeepsOneRow(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.UpsertLimit(ctx, core.Limit{ID: "l1", Owner: "alice", CategoryID: "c1", SubcategoryID: "s1", Amount: core.Money{Cents: 5000}})
	require.NoError(t, err)
	second, err := repo.UpsertLimit(ctx, core.Limit{ID: "l2", Owner: "alice", CategoryID: "c1", SubcategoryID: "s1", Amount: core.Money{Cents: 7000}})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(7000), second.Amount.Cents)

	limits, err := repo.ListLimits(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, limits, 1)
	assert.Equal(t, int64(7000), limits[0].Amount.Cents)

	require.NoError(t, repo.DeleteLimitBySubcategory(ctx, "alice", "s1"))
	require.NoError(t, repo.DeleteLimitBySubcategory(ctx, "alice", "s1"))
	limits, err = repo.ListLimits(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, limits)
}

func TestAddContributionIsAtomic(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	g := core.Goal{
		ID: "g1", Owner: "alice", Title: "Trip",
		Target: core.Money{Cents: 10000}, TargetDate: core.NewDate(2025, 1, 1),
	}
	require.NoError(t, repo.InsertGoal(ctx, g))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddContribution(ctx, "g1", 500)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetGoal(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Current.Cents)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, "2025-01-01", got.TargetDate.String())

	_, err = repo.AddContribution(ctx, "missing", 1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestProfileUpsert(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetProfile(ctx, "alice")
	assert.ErrorIs(t, err, core.ErrNotFound)

	p := core.Profile{Owner: "alice", FullName: "Alice", TaxID: "12345678909", UpdatedAt: time.Now().UTC()}
	require.NoError(t, repo.UpsertProfile(ctx, p))
	p.GatewayCustomerID = "cus_1"
	require.NoError(t, repo.UpsertProfile(ctx, p))

	got, err := repo.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", got.GatewayCustomerID)
	assert.True(t, p.UpdatedAt.Equal(got.UpdatedAt))
}

func TestMigrationVersionAndRollback(t *testing.T) {
	repo, path := newTestRepo(t)
	require.NoError(t, repo.Close())

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	require.NoError(t, RollbackMigrations(path, 1))
	v, _, err = MigrationVersion(path)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
	v, _, err = MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
}
