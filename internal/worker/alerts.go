// Package worker holds the background jobs run by saldo-worker: limit alerts
// driven by ledger events and the scheduled taxonomy audit.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/aggregate"
	"saldo/internal/core"
	"saldo/internal/events"
	applog "saldo/internal/log"
	"saldo/internal/metrics"
)

// AlertStore is the read side the limit alerter needs.
type AlertStore interface {
	ListLimits(ctx context.Context, owner string) ([]core.Limit, error)
	ListSubcategories(ctx context.Context, owner string) ([]core.Subcategory, error)
	ListTransactions(ctx context.Context, f core.TransactionFilter, r core.Range) ([]core.Transaction, error)
}

// LimitAlerter re-evaluates an owner's limits after each recorded transaction
// or limit change and reports the ones at warning or over.
type LimitAlerter struct {
	store   AlertStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewLimitAlerter(store AlertStore, m *metrics.Metrics) *LimitAlerter {
	if m == nil {
		m = metrics.Discard()
	}
	return &LimitAlerter{store: store, metrics: m, now: time.Now}
}

// HandleEvent is an amqp.Handler. Other event types are acknowledged and ignored.
func (a *LimitAlerter) HandleEvent(ctx context.Context, e events.Event) error {
	switch e.Type {
	case events.TransactionRecorded, events.LimitChanged:
	default:
		return nil
	}
	alerts, err := a.Check(ctx, e.Owner)
	if err != nil {
		return err
	}
	for _, u := range alerts {
		a.metrics.LimitAlerts.WithLabelValues(string(u.Status)).Inc()
		slog.WarnContext(ctx, "Spending limit alert",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldOwner, e.Owner,
			applog.FieldSubcategoryID, u.SubcategoryID,
			"subcategory", u.Name,
			"status", string(u.Status),
			"percentage", u.Percent,
			"spent", u.Spent.String(),
			"limit", u.Limit.String())
	}
	return nil
}

// Check returns the owner's current-month limits whose status is not ok.
func (a *LimitAlerter) Check(ctx context.Context, owner string) ([]aggregate.LimitUsage, error) {
	limits, err := a.store.ListLimits(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	if len(limits) == 0 {
		return nil, nil
	}

	now := a.now().UTC()
	start, end := core.MonthRange(now.Year(), int(now.Month()))
	txs, err := a.store.ListTransactions(ctx,
		core.TransactionFilter{Owner: owner, Start: start, End: end, Kind: core.Expense}, core.Range{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	subs, err := a.store.ListSubcategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}

	var alerts []aggregate.LimitUsage
	for _, u := range aggregate.LimitConsumption(limits, subs, txs, now) {
		if u.Status != aggregate.StatusOK {
			alerts = append(alerts, u)
		}
	}
	return alerts, nil
}
