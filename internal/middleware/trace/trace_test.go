package trace

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	applog "saldo/internal/log"
	"saldo/internal/metrics"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	tm := NewMiddleware(func(*http.Request) string { return "1.2.3.4" }, m)

	var (
		gotID  string
		logger *slog.Logger
	)
	r := chi.NewRouter()
	r.Use(chimw.RequestID, tm.Middleware)
	r.Get("/api/goals/{id}", func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		logger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/goals/abc", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
	if gotID == "" || rr.Header().Get("X-Request-ID") != gotID {
		t.Errorf("request id %q not propagated (header %q)", gotID, rr.Header().Get("X-Request-ID"))
	}
	if logger == nil || logger == slog.Default() {
		t.Error("expected a request-scoped logger in context")
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/goals/{id}", "418")); got != 1 {
		t.Errorf("requests counter = %v, want 1", got)
	}
}

func TestMiddlewareWithoutChi(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := NewMiddleware(nil, m).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plain", nil))

	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("expected generated request id, got %q", rr.Header().Get("X-Request-ID"))
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "200")); got != 1 {
		t.Errorf("requests counter = %v, want 1", got)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
