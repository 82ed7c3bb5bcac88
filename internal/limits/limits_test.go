package limits

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.InsertCategory(ctx, core.Category{ID: "food", Owner: "u1", Name: "Food", Kind: core.Expense}))
	require.NoError(t, store.InsertCategory(ctx, core.Category{ID: "fun", Owner: "u1", Name: "Leisure", Kind: core.Expense}))
	require.NoError(t, store.InsertSubcategory(ctx, core.Subcategory{ID: "groceries", CategoryID: "food", Name: "Groceries"}))
	require.NoError(t, store.InsertSubcategory(ctx, core.Subcategory{ID: "cinema", CategoryID: "fun", Name: "Cinema"}))
	return NewService(store, store, nil), store
}

func TestSetLimitIsIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	first, err := svc.SetLimit(ctx, "u1", "food", "groceries", core.Money{Cents: 20000})
	require.NoError(t, err)
	second, err := svc.SetLimit(ctx, "u1", "food", "groceries", core.Money{Cents: 25000})
	require.NoError(t, err)

	rows, err := store.ListLimits(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(25000), rows[0].Amount.Cents)
	assert.Equal(t, first.ID, second.ID, "upsert keeps the row identity")

	got, err := svc.GetLimits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]core.Money{"groceries": {Cents: 25000}}, got)
}

func TestSetLimitValidation(t *testing.T) {
	tests := []struct {
		name     string
		owner    string
		category string
		sub      string
		cents    int64
		want     error
	}{
		{"negative amount", "u1", "food", "groceries", -1, core.ErrInvalidAmount},
		{"zero allowed", "u1", "food", "groceries", 0, nil},
		{"unknown category", "u1", "nope", "groceries", 100, core.ErrInvalidCategory},
		{"category of another owner", "u2", "food", "groceries", 100, core.ErrInvalidCategory},
		{"unknown subcategory", "u1", "food", "nope", 100, core.ErrInvalidSubcategory},
		{"subcategory elsewhere", "u1", "food", "cinema", 100, core.ErrInvalidSubcategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			_, err := svc.SetLimit(context.Background(), tt.owner, tt.category, tt.sub, core.Money{Cents: tt.cents})
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClearLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SetLimit(ctx, "u1", "food", "groceries", core.Money{Cents: 100})
	require.NoError(t, err)
	require.NoError(t, svc.ClearLimit(ctx, "u1", "groceries"))
	require.NoError(t, svc.ClearLimit(ctx, "u1", "groceries"))

	got, err := svc.GetLimits(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDebouncedWriterKeepsLastEdit(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	w := NewDebouncedWriter(svc, time.Hour)

	for _, cents := range []int64{100, 200, 300} {
		require.NoError(t, w.Schedule(ctx, "u1", "food", "groceries", core.Money{Cents: cents}))
	}
	require.NoError(t, w.Schedule(ctx, "u1", "fun", "cinema", core.Money{Cents: 50}))
	assert.Equal(t, 2, w.Pending())

	assert.ErrorIs(t, w.Schedule(ctx, "u1", "food", "groceries", core.Money{Cents: -5}), core.ErrInvalidAmount)

	assert.Equal(t, 2, w.Flush())
	got, err := svc.GetLimits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), got["groceries"].Cents)
	assert.Equal(t, int64(50), got["cinema"].Cents)

	rows, err := store.ListLimits(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDebouncedWriterFiresAfterQuiescence(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	w := NewDebouncedWriter(svc, 10*time.Millisecond)
	require.NoError(t, w.Schedule(ctx, "u1", "food", "groceries", core.Money{Cents: 700}))

	assert.Eventually(t, func() bool {
		got, err := svc.GetLimits(context.Background(), "u1")
		return err == nil && got["groceries"].Cents == 700
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, w.Stop())
}

func TestDebouncedWriterRejectsInvalidEditsBeforeQueueing(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	w := NewDebouncedWriter(svc, time.Hour)

	tests := []struct {
		name     string
		owner    string
		category string
		sub      string
		want     error
	}{
		{"unknown category", "u1", "nope", "missing", core.ErrInvalidCategory},
		{"category of another owner", "u2", "food", "groceries", core.ErrInvalidCategory},
		{"unknown subcategory", "u1", "food", "missing", core.ErrInvalidSubcategory},
		{"subcategory elsewhere", "u1", "food", "cinema", core.ErrInvalidSubcategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Schedule(ctx, tt.owner, tt.category, tt.sub, core.Money{Cents: 5000})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, w.Pending())
	assert.Zero(t, w.Flush())
	rows, err := store.ListLimits(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
