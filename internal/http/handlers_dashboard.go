package http

import (
	"net/http"
	"strconv"
	"strings"

	"saldo/internal/aggregate"
	applog "saldo/internal/log"
)

const (
	defaultRecent = 5
	maxRecent     = 50
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params := ParseMonthParams(r.URL.Query(), s.now())
	if err := params.Validate(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	view, err := s.deps.Dashboard.View(r.Context(), ownerFrom(r.Context()), params.Year, params.Month)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Dashboard served",
		applog.FieldYear, params.Year,
		applog.FieldMonth, params.Month)
	NewJSONResponse().Body(view).Write(w)
}

type calendarResponse struct {
	Year  int                      `json:"year"`
	Month int                      `json:"month"`
	Days  map[int]aggregate.Totals `json:"days"`
}

// handleCalendar serves the per-day totals of a month, days without
// transactions omitted.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	params := ParseMonthParams(r.URL.Query(), s.now())
	if err := params.Validate(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	view, err := s.deps.Dashboard.View(r.Context(), ownerFrom(r.Context()), params.Year, params.Month)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(calendarResponse{Year: view.Year, Month: view.Month, Days: view.Calendar}).Write(w)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	n := defaultRecent
	if v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit"))); err == nil && v > 0 {
		n = min(v, maxRecent)
	}
	entries, err := s.deps.Ledger.Recent(r.Context(), ownerFrom(r.Context()), n)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"transactions": entries}).Write(w)
}
