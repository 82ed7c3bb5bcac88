package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"saldo/internal/aggregate"
	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/config"
	"saldo/internal/dashboard"
	"saldo/internal/events"
	"saldo/internal/goals"
	apphttp "saldo/internal/http"
	"saldo/internal/ledger"
	"saldo/internal/limits"
	applog "saldo/internal/log"
	"saldo/internal/metrics"
	"saldo/internal/payment"
	"saldo/internal/storage"
	"saldo/internal/taxonomy"
)

// App wires the services over one store.
type App struct {
	Config   *config.Config
	Store    storage.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Taxonomy    *taxonomy.Service
	Ledger      *ledger.Service
	Limits      *limits.Service
	LimitWriter *limits.DebouncedWriter
	Goals       *goals.Service
	Dashboard   *dashboard.Service
	Payments    *payment.Orchestrator // nil when ASAAS_API_KEY is unset
	Events      events.Publisher

	broker *amqp.Client
	caches *cache.Manager
}

// NewApp builds every service. A broker that cannot be reached is logged and
// skipped; the dashboard still invalidates in process.
func NewApp(cfg *config.Config, store storage.Store) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	viewCache := cache.NewLRUCache[aggregate.DerivedView](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(viewCache)
	caches.StartCleanup(time.Minute)

	app := &App{Config: cfg, Store: store, Registry: reg, Metrics: m, caches: caches}
	app.Dashboard = dashboard.NewService(store, viewCache, m)

	publishers := events.Multi{app.Dashboard}
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("AMQP unavailable, events stay in process",
				applog.FieldComponent, applog.ComponentAMQP,
				applog.FieldError, err)
		} else {
			app.broker = client
			publishers = append(publishers, client)
		}
	}
	app.Events = publishers

	app.Taxonomy = taxonomy.NewService(store, app.Events)
	app.Ledger = ledger.NewService(store, store, app.Events, m)
	app.Limits = limits.NewService(store, store, app.Events)
	app.LimitWriter = limits.NewDebouncedWriter(app.Limits, cfg.LimitDebounce)
	app.Goals = goals.NewService(store, app.Events)

	if cfg.PaymentsEnabled() {
		catalog, err := payment.LoadCatalog(cfg.PlansFile)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("load plans: %w", err)
		}
		gateway := payment.NewAsaasClient(cfg.AsaasAPIURL, cfg.AsaasAPIKey, cfg.PaymentTimeout, m)
		app.Payments = payment.NewOrchestrator(gateway, store, catalog, app.Events)
	}
	return app, nil
}

// HTTPServer returns the API server for this app.
func (a *App) HTTPServer() (*apphttp.Server, error) {
	return apphttp.NewServer(":"+a.Config.Port, apphttp.Deps{
		Taxonomy:    a.Taxonomy,
		Ledger:      a.Ledger,
		Limits:      a.Limits,
		LimitWriter: a.LimitWriter,
		Goals:       a.Goals,
		Dashboard:   a.Dashboard,
		Payments:    a.Payments,
		Profiles:    a.Store,
		Events:      a.Events,
		Ready:       ReadyCheck(a.Store),
	}, apphttp.Options{
		RequestTimeout:    a.Config.RequestTimeout,
		RequestsPerMinute: a.Config.RateLimitRPM,
		TrustedProxies:    a.Config.TrustedProxies,
		Metrics:           a.Metrics,
		Gatherer:          a.Registry,
	})
}

// Broker is the AMQP client, nil when disabled or unreachable.
func (a *App) Broker() *amqp.Client {
	return a.broker
}

// Close flushes pending limit writes and releases the broker, caches and store.
func (a *App) Close() {
	if a.LimitWriter != nil {
		a.LimitWriter.Stop()
	}
	if a.caches != nil {
		a.caches.Stop()
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			slog.Warn("AMQP close failed", applog.FieldError, err)
		}
	}
	if err := a.Store.Close(); err != nil {
		slog.Warn("Store close failed", applog.FieldError, err)
	}
}

// withTimeout is the deadline for one-shot commands.
func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 2*time.Minute)
}
