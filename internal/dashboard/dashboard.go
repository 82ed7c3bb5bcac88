// Package dashboard builds the derived month view of an owner's finances.
// Rows are fetched concurrently, the view is computed in memory and cached
// until one of the owner's rows changes.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"saldo/internal/aggregate"
	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/events"
	applog "saldo/internal/log"
	"saldo/internal/metrics"
)

const (
	DefaultCacheSize = 512
	DefaultCacheTTL  = 5 * time.Minute

	// loadTimeout bounds a shared build, which outlives the request that started it.
	loadTimeout = 15 * time.Second
)

// Store is the read side the dashboard needs.
type Store interface {
	ListCategories(ctx context.Context, owner string) ([]core.Category, error)
	ListSubcategories(ctx context.Context, owner string) ([]core.Subcategory, error)
	ListLimits(ctx context.Context, owner string) ([]core.Limit, error)
	ListGoals(ctx context.Context, owner string) ([]core.Goal, error)
	ListTransactions(ctx context.Context, f core.TransactionFilter, r core.Range) ([]core.Transaction, error)
}

type Service struct {
	store   Store
	cache   cache.Cache[aggregate.DerivedView]
	group   singleflight.Group
	metrics *metrics.Metrics

	mu          sync.Mutex
	generations map[string]uint64
}

func NewService(store Store, c cache.Cache[aggregate.DerivedView], m *metrics.Metrics) *Service {
	if c == nil {
		c = cache.NewLRUCache[aggregate.DerivedView](DefaultCacheSize, DefaultCacheTTL)
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Service{store: store, cache: c, metrics: m, generations: make(map[string]uint64)}
}

func cacheKey(owner string, year, month int) string {
	return owner + "|" + strconv.Itoa(year) + "|" + strconv.Itoa(month)
}

// View returns the derived view of the given month. Concurrent callers for the
// same month share one load.
func (s *Service) View(ctx context.Context, owner string, year, month int) (aggregate.DerivedView, error) {
	if month < 1 || month > 12 {
		return aggregate.DerivedView{}, fmt.Errorf("month %d: %w", month, core.ErrInvalidDate)
	}
	key := cacheKey(owner, year, month)
	if view, ok := s.cache.Get(key); ok {
		s.metrics.DashboardLoads.WithLabelValues("hit").Inc()
		return view, nil
	}

	// The build runs detached from the caller that started it, so one cancelled
	// request does not fail the others waiting on the same key. Each caller
	// still stops waiting when its own context ends.
	ch := s.group.DoChan(key, func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		gen := s.generation(owner)
		start := time.Now()
		view, err := s.build(buildCtx, owner, year, month)
		if err != nil {
			return aggregate.DerivedView{}, err
		}
		s.metrics.DashboardBuild.Observe(time.Since(start).Seconds())
		// A write that landed during the load bumped the generation; do not
		// cache a view that may predate it.
		if s.generation(owner) == gen {
			s.cache.Set(key, view)
		}
		return view, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return aggregate.DerivedView{}, ctx.Err()
	}
	if res.Err != nil {
		return aggregate.DerivedView{}, res.Err
	}
	if res.Shared {
		s.metrics.DashboardLoads.WithLabelValues("shared").Inc()
	} else {
		s.metrics.DashboardLoads.WithLabelValues("miss").Inc()
	}
	v := res.Val
	return v.(aggregate.DerivedView), nil
}

func (s *Service) build(ctx context.Context, owner string, year, month int) (aggregate.DerivedView, error) {
	var snap aggregate.Snapshot
	start, end := core.YearRange(year)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Categories, err = s.store.ListCategories(gctx, owner)
		return wrap("categories", err)
	})
	g.Go(func() (err error) {
		snap.Subcategories, err = s.store.ListSubcategories(gctx, owner)
		return wrap("subcategories", err)
	})
	g.Go(func() (err error) {
		snap.Limits, err = s.store.ListLimits(gctx, owner)
		return wrap("limits", err)
	})
	g.Go(func() (err error) {
		snap.Goals, err = s.store.ListGoals(gctx, owner)
		return wrap("goals", err)
	})
	g.Go(func() (err error) {
		filter := core.TransactionFilter{Owner: owner, Start: start, End: end}
		snap.Transactions, err = s.store.ListTransactions(gctx, filter, core.Range{})
		return wrap("transactions", err)
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Dashboard load failed",
			applog.FieldOwner, owner,
			applog.FieldYear, year,
			applog.FieldMonth, month,
			applog.FieldError, err)
		return aggregate.DerivedView{}, err
	}

	snap.AsOf = core.NewDate(year, month, 1).Time
	return aggregate.Aggregate(snap), nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// Invalidate drops every cached view of the owner.
func (s *Service) Invalidate(owner string) int {
	s.mu.Lock()
	s.generations[owner]++
	s.mu.Unlock()
	return s.cache.DeletePrefix(owner + "|")
}

func (s *Service) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[owner]
}

// Publish lets the dashboard sit in an events.Multi next to the broker, so every
// domain write invalidates the owner's cached views.
func (s *Service) Publish(_ context.Context, e events.Event) error {
	s.Invalidate(e.Owner)
	return nil
}
