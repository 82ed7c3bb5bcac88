package goals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/aggregate"
	"saldo/internal/core"
	"saldo/internal/events"
	"saldo/internal/storage/memory"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"zero target", CreateInput{Owner: "u1", Title: "Trip", Target: core.Money{}}, core.ErrInvalidAmount},
		{"negative target", CreateInput{Owner: "u1", Title: "Trip", Target: core.Money{Cents: -10}}, core.ErrInvalidAmount},
		{"blank title", CreateInput{Owner: "u1", Title: "  ", Target: core.Money{Cents: 100}}, core.ErrInvalidName},
		{"ok", CreateInput{Owner: "u1", Title: "Trip", Target: core.Money{Cents: 100}, TargetDate: core.NewDate(2025, 12, 1)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(memory.New(), nil)
			view, err := svc.Create(context.Background(), tt.in)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			require.NoError(t, err)
			assert.Zero(t, view.Percent)
			assert.False(t, view.IsCompleted)
		})
	}
}

func TestContributeCompletesGoal(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	svc := NewService(memory.New(), rec)

	goal, err := svc.Create(ctx, CreateInput{Owner: "u1", Title: "Laptop", Target: core.Money{Cents: 100000}})
	require.NoError(t, err)

	view, err := svc.Contribute(ctx, "u1", goal.ID, core.Money{Cents: 20000})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), view.Current.Cents)
	assert.Equal(t, 20, view.Percent)
	assert.False(t, view.IsCompleted)

	view, err = svc.Contribute(ctx, "u1", goal.ID, core.Money{Cents: 90000})
	require.NoError(t, err)
	assert.Equal(t, int64(110000), view.Current.Cents)
	assert.Equal(t, 100, view.Percent)
	assert.True(t, view.IsCompleted)

	_, err = svc.Contribute(ctx, "u1", goal.ID, core.Money{Cents: 1})
	require.NoError(t, err)

	completed := 0
	for _, typ := range rec.types() {
		if typ == events.GoalCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed, "completion is announced once")
}

func TestContributeErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), nil)
	goal, err := svc.Create(ctx, CreateInput{Owner: "u1", Title: "Trip", Target: core.Money{Cents: 500}})
	require.NoError(t, err)

	_, err = svc.Contribute(ctx, "u1", goal.ID, core.Money{})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = svc.Contribute(ctx, "u1", "missing", core.Money{Cents: 1})
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.Contribute(ctx, "u2", goal.ID, core.Money{Cents: 1})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestConcurrentContributionsAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), nil)
	goal, err := svc.Create(ctx, CreateInput{Owner: "u1", Title: "Fund", Target: core.Money{Cents: 1_000_000}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Contribute(ctx, "u1", goal.ID, core.Money{Cents: 100})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(5000), list[0].Current.Cents)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), nil)
	goal, err := svc.Create(ctx, CreateInput{Owner: "u1", Title: "Trip", Target: core.Money{Cents: 500}})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", goal.ID), core.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "u1", goal.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", goal.ID), core.ErrNotFound)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAlertsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), nil)
	asOf := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, CreateInput{Owner: "u1", Title: "Trip", Target: core.Money{Cents: 500}, TargetDate: core.NewDate(2024, 3, 20)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Owner: "u2", Title: "Bike", Target: core.Money{Cents: 500}, TargetDate: core.NewDate(2024, 3, 1)})
	require.NoError(t, err)

	alerts, err := svc.Alerts(ctx, "u1", asOf)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, aggregate.NotificationWarning, alerts[0].Type)

	alerts, err = svc.Alerts(ctx, "u3", asOf)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
