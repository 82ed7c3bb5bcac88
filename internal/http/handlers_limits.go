package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"saldo/internal/core"
)

type limitRequest struct {
	CategoryID    string     `json:"categoryId"`
	SubcategoryID string     `json:"subcategoryId"`
	Amount        core.Money `json:"limitAmount"`
}

func (s *Server) handleListLimits(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Limits.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"limits": rows}).Write(w)
}

// handleSetLimit queues the write on the debounced writer and answers 202.
// ?sync=true, or a server without a writer, writes immediately.
func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if req.CategoryID == "" || req.SubcategoryID == "" {
		BadRequestError("categoryId and subcategoryId are required").Write(w)
		return
	}
	owner := ownerFrom(r.Context())

	if s.deps.LimitWriter != nil && r.URL.Query().Get("sync") != "true" {
		if err := s.deps.LimitWriter.Schedule(r.Context(), owner, req.CategoryID, req.SubcategoryID, req.Amount); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NewJSONResponse().Status(http.StatusAccepted).Body(map[string]any{
			"subcategoryId": req.SubcategoryID,
			"limitAmount":   req.Amount,
			"status":        "pending",
		}).Write(w)
		return
	}

	stored, err := s.deps.Limits.SetLimit(r.Context(), owner, req.CategoryID, req.SubcategoryID, req.Amount)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(stored).Write(w)
}

func (s *Server) handleClearLimit(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Limits.ClearLimit(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "subcategoryID")); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
