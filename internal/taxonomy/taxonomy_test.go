package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/events"
	"saldo/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, *[]events.Event) {
	t.Helper()
	store := memory.New()
	var published []events.Event
	pub := events.PublisherFunc(func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	return NewService(store, pub), store, &published
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.CreateCategory(ctx, "u1", "Food", core.Expense, "restaurant")
	require.NoError(t, err)

	tests := []struct {
		name  string
		owner string
		input string
		want  error
	}{
		{"same name", "u1", "Food", core.ErrDuplicateName},
		{"different case", "u1", "  food ", core.ErrDuplicateName},
		{"other owner", "u2", "Food", nil},
		{"blank", "u1", "   ", core.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCategory(ctx, tt.owner, tt.input, core.Expense, "")
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateCategoryRejectsInvalidKind(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateCategory(context.Background(), "u1", "Misc", core.Kind("transfer"), "")
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestCreateSubcategoryUniqueWithinCategory(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	food, err := svc.CreateCategory(ctx, "u1", "Food", core.Expense, "")
	require.NoError(t, err)
	fun, err := svc.CreateCategory(ctx, "u1", "Leisure", core.Expense, "")
	require.NoError(t, err)

	_, err = svc.CreateSubcategory(ctx, "u1", food.ID, "Restaurants")
	require.NoError(t, err)

	_, err = svc.CreateSubcategory(ctx, "u1", food.ID, "restaurants")
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	_, err = svc.CreateSubcategory(ctx, "u1", fun.ID, "Restaurants")
	assert.NoError(t, err, "same name under another category is allowed")

	_, err = svc.CreateSubcategory(ctx, "u2", food.ID, "Bakery")
	assert.ErrorIs(t, err, core.ErrNotFound, "category of another owner")
}

func TestRenameCategory(t *testing.T) {
	ctx := context.Background()
	svc, _, published := newTestService(t)

	food, err := svc.CreateCategory(ctx, "u1", "Food", core.Expense, "")
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "u1", "Transport", core.Expense, "")
	require.NoError(t, err)

	renamed, err := svc.RenameCategory(ctx, "u1", food.ID, "Groceries", "cart")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", renamed.Name)
	assert.Equal(t, "cart", renamed.Icon)
	assert.Equal(t, events.CategoryChanged, (*published)[len(*published)-1].Type)

	_, err = svc.RenameCategory(ctx, "u1", food.ID, "groceries", "")
	assert.NoError(t, err, "renaming onto its own name is allowed")

	_, err = svc.RenameCategory(ctx, "u1", food.ID, "Transport", "")
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	_, err = svc.RenameCategory(ctx, "u2", food.ID, "Mine", "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.RenameCategory(ctx, "u1", "missing", "X", "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSystemDefaultsAreImmutable(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	_, err := svc.SeedDefaults(ctx, "u1")
	require.NoError(t, err)
	housing, err := store.FindCategoryByName(ctx, "u1", "Housing")
	require.NoError(t, err)
	rent, err := store.FindSubcategoryByName(ctx, housing.ID, "Rent")
	require.NoError(t, err)

	_, err = svc.RenameCategory(ctx, "u1", housing.ID, "Home", "")
	assert.ErrorIs(t, err, core.ErrImmutable)
	assert.ErrorIs(t, svc.DeleteCategory(ctx, "u1", housing.ID), core.ErrImmutable)
	assert.ErrorIs(t, svc.DeleteSubcategory(ctx, "u1", rent.ID), core.ErrImmutable)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	first, err := svc.SeedDefaults(ctx, "u1")
	require.NoError(t, err)
	assert.Positive(t, first)

	second, err := svc.SeedDefaults(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, second)

	cats, err := store.ListCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cats, len(defaultTaxonomy))
}

func TestDeleteCategoryCascadesDependentsFirst(t *testing.T) {
	ctx := context.Background()
	svc, store, published := newTestService(t)

	food, err := svc.CreateCategory(ctx, "u1", "Food", core.Expense, "")
	require.NoError(t, err)
	groceries, err := svc.CreateSubcategory(ctx, "u1", food.ID, "Groceries")
	require.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, "u1", food.ID, "Restaurants")
	require.NoError(t, err)

	_, err = store.UpsertLimit(ctx, core.Limit{ID: "l1", Owner: "u1", CategoryID: food.ID, SubcategoryID: groceries.ID, Amount: core.Money{Cents: 50000}})
	require.NoError(t, err)
	tx := core.Transaction{
		ID: "t1", Owner: "u1", CategoryID: food.ID, SubcategoryID: groceries.ID,
		Amount: core.Money{Cents: 1200}, Date: core.NewDate(2024, 3, 4), Kind: core.Expense,
	}
	require.NoError(t, store.InsertTransaction(ctx, tx))

	require.NoError(t, svc.DeleteCategory(ctx, "u1", food.ID))

	_, err = store.GetCategory(ctx, food.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	subs, err := store.ListSubcategoriesByCategory(ctx, food.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
	limits, err := store.ListLimits(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, limits)

	txs, err := store.ListTransactions(ctx, core.TransactionFilter{Owner: "u1"}, core.Range{})
	require.NoError(t, err)
	assert.Equal(t, []core.Transaction{tx}, txs, "transactions survive as soft orphans")

	assert.Equal(t, events.CategoryDeleted, (*published)[len(*published)-1].Type)
}

type failingLimitStore struct {
	*memory.Store
}

func (failingLimitStore) DeleteLimitBySubcategory(context.Context, string, string) error {
	return errors.New("store unavailable")
}

func TestDeleteCategoryStopsOnDependentFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewService(failingLimitStore{store}, nil)

	food, err := svc.CreateCategory(ctx, "u1", "Food", core.Expense, "")
	require.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, "u1", food.ID, "Groceries")
	require.NoError(t, err)

	require.Error(t, svc.DeleteCategory(ctx, "u1", food.ID))

	_, err = store.GetCategory(ctx, food.ID)
	assert.NoError(t, err, "parent must stay when a dependent step fails")
	subs, err := store.ListSubcategoriesByCategory(ctx, food.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestDeleteSubcategory(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	food, err := svc.CreateCategory(ctx, "u1", "Food", core.Expense, "")
	require.NoError(t, err)
	sub, err := svc.CreateSubcategory(ctx, "u1", food.ID, "Groceries")
	require.NoError(t, err)
	_, err = store.UpsertLimit(ctx, core.Limit{ID: "l1", Owner: "u1", CategoryID: food.ID, SubcategoryID: sub.ID, Amount: core.Money{Cents: 100}})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteSubcategory(ctx, "u2", sub.ID), core.ErrNotFound)
	require.NoError(t, svc.DeleteSubcategory(ctx, "u1", sub.ID))

	_, err = store.GetSubcategory(ctx, sub.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	limits, err := store.ListLimits(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, limits)
}

func TestListCategoriesSortedWithChildren(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	transport, err := svc.CreateCategory(ctx, "u1", "Transport", core.Expense, "")
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "u1", "Food", core.Expense, "")
	require.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, "u1", transport.ID, "Taxi")
	require.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, "u1", transport.ID, "Fuel")
	require.NoError(t, err)

	trees, err := svc.ListCategories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, "Food", trees[0].Name)
	assert.Empty(t, trees[0].Subcategories)
	assert.Equal(t, "Transport", trees[1].Name)
	require.Len(t, trees[1].Subcategories, 2)
	assert.Equal(t, "Fuel", trees[1].Subcategories[0].Name)
	assert.Equal(t, "Taxi", trees[1].Subcategories[1].Name)
}

func TestVerifyIntegrity(t *testing.T) {
	t.Run("single orphan", func(t *testing.T) {
		cats := []core.Category{{ID: "1", Owner: "u1", Name: "Food"}}
		subs := []core.Subcategory{{ID: "10", CategoryID: "1"}, {ID: "11", CategoryID: "99"}}

		report := VerifyIntegrity(cats, subs)
		require.Len(t, report.Orphans, 1)
		assert.Equal(t, "11", report.Orphans[0].ID)
		assert.Empty(t, report.Duplicates)
		assert.ErrorIs(t, report.Err(), core.ErrIntegrityViolation)
	})

	t.Run("duplicates grouped by owner", func(t *testing.T) {
		cats := []core.Category{
			{ID: "1", Owner: "u1", Name: "Food"},
			{ID: "2", Owner: "u1", Name: "food"},
			{ID: "3", Owner: "u2", Name: "Food"},
			{ID: "4", Owner: "u1", Name: "Transport"},
		}
		report := VerifyIntegrity(cats, nil)
		assert.Empty(t, report.Orphans)
		require.Len(t, report.Duplicates["u1"], 1)
		assert.Len(t, report.Duplicates["u1"][0], 2)
		assert.NotContains(t, report.Duplicates, "u2")
	})

	t.Run("clean", func(t *testing.T) {
		cats := []core.Category{{ID: "1", Owner: "u1", Name: "Food"}}
		report := VerifyIntegrity(cats, []core.Subcategory{{ID: "10", CategoryID: "1"}})
		assert.True(t, report.Clean())
		assert.NoError(t, report.Err())
	})

	t.Run("inputs untouched", func(t *testing.T) {
		subs := []core.Subcategory{{ID: "b", CategoryID: "x"}, {ID: "a", CategoryID: "y"}}
		VerifyIntegrity(nil, subs)
		assert.Equal(t, "b", subs[0].ID)
	})
}

func TestAuditFindsOrphansAcrossOwners(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	food, err := svc.CreateCategory(ctx, "u1", "Food", core.Expense, "")
	require.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, "u1", food.ID, "Groceries")
	require.NoError(t, err)
	require.NoError(t, store.InsertSubcategory(ctx, core.Subcategory{ID: "lost", CategoryID: "gone", Name: "Lost"}))

	owned, err := svc.Integrity(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, owned.Clean(), "orphans have no owner")

	report, err := Audit(ctx, store)
	require.NoError(t, err)
	require.Len(t, report.Orphans, 1)
	assert.Equal(t, "lost", report.Orphans[0].ID)
}
