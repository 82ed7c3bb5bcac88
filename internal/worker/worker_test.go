package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/aggregate"
	"saldo/internal/core"
	"saldo/internal/events"
	"saldo/internal/metrics"
	"saldo/internal/storage/memory"
)

func seedLimits(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	cat := core.Category{ID: "food", Owner: "alice", Name: "Food", Kind: core.Expense, CreatedAt: time.Now()}
	require.NoError(t, store.InsertCategory(ctx, cat))
	for _, sub := range []core.Subcategory{
		{ID: "groceries", CategoryID: "food", Name: "Groceries"},
		{ID: "bars", CategoryID: "food", Name: "Bars"},
		{ID: "fuel", CategoryID: "food", Name: "Fuel"},
	} {
		require.NoError(t, store.InsertSubcategory(ctx, sub))
		_, err := store.UpsertLimit(ctx, core.Limit{
			ID: core.NewID(), Owner: "alice", CategoryID: "food", SubcategoryID: sub.ID,
			Amount: core.Money{Cents: 10000},
		})
		require.NoError(t, err)
	}
	spend := map[string]int64{"groceries": 9000, "bars": 12000, "fuel": 1000}
	for sub, cents := range spend {
		require.NoError(t, store.InsertTransaction(ctx, core.Transaction{
			ID: core.NewID(), Owner: "alice", CategoryID: "food", SubcategoryID: sub,
			Amount: core.Money{Cents: cents}, Date: core.NewDate(2024, 3, 10),
			Kind: core.Expense, CreatedAt: time.Now(),
		}))
	}
	// Last month's spend does not count.
	require.NoError(t, store.InsertTransaction(ctx, core.Transaction{
		ID: core.NewID(), Owner: "alice", CategoryID: "food", SubcategoryID: "fuel",
		Amount: core.Money{Cents: 50000}, Date: core.NewDate(2024, 2, 28),
		Kind: core.Expense, CreatedAt: time.Now(),
	}))
}

func TestLimitAlerterReportsWarningAndOver(t *testing.T) {
	store := memory.New()
	seedLimits(t, store)
	m := metrics.New(prometheus.NewRegistry())
	a := NewLimitAlerter(store, m)
	a.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }

	alerts, err := a.Check(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Bars", alerts[0].Name)
	assert.Equal(t, aggregate.StatusOver, alerts[0].Status)
	assert.Equal(t, "Groceries", alerts[1].Name)
	assert.Equal(t, aggregate.StatusWarning, alerts[1].Status)

	require.NoError(t, a.HandleEvent(context.Background(), events.New(events.TransactionRecorded, "alice", "tx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LimitAlerts.WithLabelValues("over")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LimitAlerts.WithLabelValues("warning")))
}

func TestLimitAlerterIgnoresUnrelatedEvents(t *testing.T) {
	store := memory.New()
	seedLimits(t, store)
	m := metrics.New(prometheus.NewRegistry())
	a := NewLimitAlerter(store, m)
	a.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, a.HandleEvent(context.Background(), events.New(events.GoalChanged, "alice", "g")))
	assert.Zero(t, testutil.CollectAndCount(m.LimitAlerts))
}

func TestLimitAlerterWithoutLimits(t *testing.T) {
	a := NewLimitAlerter(memory.New(), nil)
	alerts, err := a.Check(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAuditorExportsViolationCounts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.InsertCategory(ctx, core.Category{ID: "c1", Owner: "alice", Name: "Food", Kind: core.Expense}))
	require.NoError(t, store.InsertSubcategory(ctx, core.Subcategory{ID: "s1", CategoryID: "c1", Name: "Groceries"}))
	require.NoError(t, store.InsertSubcategory(ctx, core.Subcategory{ID: "s2", CategoryID: "gone", Name: "Lost"}))

	m := metrics.New(prometheus.NewRegistry())
	report, err := NewAuditor(store, m).Run(ctx)
	require.NoError(t, err)

	require.Len(t, report.Orphans, 1)
	assert.Equal(t, "s2", report.Orphans[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntegrityViolations.WithLabelValues("orphan_subcategory")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.IntegrityViolations.WithLabelValues("duplicate_category")))
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil)
	_, err := s.Add("not a spec", "audit", time.Second, func(context.Context) error { return nil })
	assert.Error(t, err)

	_, err = s.Add(DefaultAuditSchedule, "audit", time.Second, func(context.Context) error { return nil })
	assert.NoError(t, err)
}
