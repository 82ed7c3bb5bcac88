// Package http exposes the JSON API over chi.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"saldo/internal/dashboard"
	"saldo/internal/events"
	"saldo/internal/goals"
	"saldo/internal/ledger"
	"saldo/internal/limits"
	applog "saldo/internal/log"
	"saldo/internal/metrics"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/payment"
	"saldo/internal/taxonomy"
)

// OwnerHeader carries the authenticated owner id, set by the fronting auth proxy.
const OwnerHeader = "X-Owner-ID"

type ownerKey struct{}

// Deps are the services the handlers call.
type Deps struct {
	Taxonomy    *taxonomy.Service
	Ledger      *ledger.Service
	Limits      *limits.Service
	LimitWriter *limits.DebouncedWriter
	Goals       *goals.Service
	Dashboard   *dashboard.Service
	Payments    *payment.Orchestrator
	Profiles    payment.ProfileRepository
	Events      events.Publisher
	// Ready reports whether the data store answers; nil means always ready.
	Ready func(ctx context.Context) error
}

// Options tune the transport around the handlers.
type Options struct {
	RequestTimeout    time.Duration
	RequestsPerMinute int
	TrustedProxies    []string
	Metrics           *metrics.Metrics
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	http.Server
	deps    Deps
	opts    Options
	limiter *ratelimit.Limiter
	ip      *security.IPResolver
	now     func() time.Time
}

// NewServer builds the router and wraps it in an http.Server listening on addr.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	resolver, err := security.NewIPResolver(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps: deps,
		opts: opts,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
			Rejected:          opts.Metrics.RateLimited,
		}),
		ip:  resolver,
		now: time.Now,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(trace.NewMiddleware(s.ip.ClientIP, s.opts.Metrics).Middleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requireOwner)
		r.Use(s.limiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, _ *http.Request) {
			TooManyRequestsError("rate limit exceeded").Write(w)
		}))

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/dashboard/recent", s.handleRecent)
		r.Get("/calendar", s.handleCalendar)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Post("/seed", s.handleSeedCategories)
			r.Put("/{id}", s.handleRenameCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
			r.Post("/{id}/subcategories", s.handleCreateSubcategory)
		})
		r.Delete("/subcategories/{id}", s.handleDeleteSubcategory)
		r.Get("/integrity", s.handleIntegrity)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleRecordTransaction)
		})

		r.Route("/limits", func(r chi.Router) {
			r.Get("/", s.handleListLimits)
			r.Put("/", s.handleSetLimit)
			r.Delete("/{subcategoryID}", s.handleClearLimit)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", s.handleListGoals)
			r.Post("/", s.handleCreateGoal)
			r.Delete("/{id}", s.handleDeleteGoal)
			r.Post("/{id}/contributions", s.handleContribute)
		})
		r.Get("/notifications", s.handleNotifications)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handlePutProfile)

		r.Get("/plans", s.handleListPlans)
		r.Post("/checkout", s.handleCheckout)
	})

	return r
}

// rateLimitKey buckets requests by client IP. The owner header only splits the
// bucket when it arrived through a configured proxy, which must overwrite any
// client-supplied X-Owner-ID.
func (s *Server) rateLimitKey(r *http.Request) string {
	ip := s.ip.ClientIP(r)
	if len(s.opts.TrustedProxies) > 0 && s.ip.FromTrustedProxy(r) {
		return ownerFrom(r.Context()) + "|" + ip
	}
	return ip
}

// Shutdown stops the HTTP server, flushes pending limit writes and stops the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	if s.deps.LimitWriter != nil {
		if n := s.deps.LimitWriter.Flush(); n > 0 {
			slog.InfoContext(ctx, "Flushed pending limit writes", "count", n)
		}
	}
	s.limiter.Stop()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// requireOwner rejects API calls without an owner id.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			UnauthorizedError("missing " + OwnerHeader + " header").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		ctx = applog.IntoContext(ctx, applog.FromContext(ctx).With(applog.FieldOwner, owner))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// publish forwards an event and logs, never fails, on error.
func (s *Server) publish(ctx context.Context, e events.Event) {
	if err := s.deps.Events.Publish(ctx, e); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Failed to publish event",
			applog.FieldEventType, string(e.Type),
			applog.FieldError, err)
	}
}
