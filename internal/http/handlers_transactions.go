package http

import (
	"net/http"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

type transactionRequest struct {
	CategoryID    string     `json:"categoryId"`
	SubcategoryID string     `json:"subcategoryId"`
	Amount        core.Money `json:"amount"`
	Date          core.Date  `json:"date"`
	Kind          core.Kind  `json:"kind"`
	Description   string     `json:"description"`
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	kind, err := core.ParseKind(string(req.Kind))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	tx, err := s.deps.Ledger.Record(r.Context(), ledger.RecordInput{
		Owner:         ownerFrom(r.Context()),
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Amount:        req.Amount,
		Date:          req.Date,
		Kind:          kind,
		Description:   sanitizeInput(req.Description),
	})
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

// handleListTransactions pages through a date range. Without from/to it
// covers the requested (or current) month.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := ParseDateQuery(q, "from")
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	end, err := ParseDateQuery(q, "to")
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if start.IsZero() && end.IsZero() {
		month := ParseMonthParams(q, s.now())
		if err := month.Validate(); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		start, end = core.MonthRange(month.Year, month.Month)
	} else if !end.IsZero() {
		// "to" is inclusive for callers; the range end is exclusive.
		end = core.Date{Time: end.AddDate(0, 0, 1)}
	}
	kind, err := core.ParseKind(q.Get("kind"))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	paging := ParsePageParams(q, ledger.DefaultPageSize, ledger.MaxPageSize)

	page, err := s.deps.Ledger.QueryRange(r.Context(), ledger.Query{
		Owner:    ownerFrom(r.Context()),
		Start:    start,
		End:      end,
		Kind:     kind,
		Page:     paging.Page,
		PageSize: paging.PageSize,
		Search:   sanitizeInput(q.Get("search")),
	})
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(page).Write(w)
}
