package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"saldo/internal/core"
	"saldo/internal/goals"
)

type goalRequest struct {
	Title      string     `json:"title"`
	Target     core.Money `json:"targetAmount"`
	TargetDate core.Date  `json:"targetDate"`
	Color      string     `json:"color"`
	Icon       string     `json:"icon"`
}

type contributionRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Goals.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"goals": views}).Write(w)
}

// handleNotifications serves the goal deadline alerts as of the server clock.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.deps.Goals.Alerts(r.Context(), ownerFrom(r.Context()), s.now())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"notifications": alerts}).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	view, err := s.deps.Goals.Create(r.Context(), goals.CreateInput{
		Owner:      ownerFrom(r.Context()),
		Title:      sanitizeInput(req.Title),
		Target:     req.Target,
		TargetDate: req.TargetDate,
		Color:      sanitizeInput(req.Color),
		Icon:       sanitizeInput(req.Icon),
	})
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(view).Write(w)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	view, err := s.deps.Goals.Contribute(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Goals.Delete(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
