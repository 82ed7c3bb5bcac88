package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"saldo/internal/core"
)

type categoryRequest struct {
	Name string    `json:"name"`
	Kind core.Kind `json:"kind"`
	Icon string    `json:"icon"`
}

type subcategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	trees, err := s.deps.Taxonomy.ListCategories(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"categories": trees}).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	kind, err := core.ParseKind(string(req.Kind))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	cat, err := s.deps.Taxonomy.CreateCategory(r.Context(), ownerFrom(r.Context()),
		sanitizeInput(req.Name), kind, sanitizeInput(req.Icon))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(cat).Write(w)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	cat, err := s.deps.Taxonomy.RenameCategory(r.Context(), ownerFrom(r.Context()),
		chi.URLParam(r, "id"), sanitizeInput(req.Name), sanitizeInput(req.Icon))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(cat).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Taxonomy.DeleteCategory(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req subcategoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	sub, err := s.deps.Taxonomy.CreateSubcategory(r.Context(), ownerFrom(r.Context()),
		chi.URLParam(r, "id"), sanitizeInput(req.Name))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(sub).Write(w)
}

func (s *Server) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Taxonomy.DeleteSubcategory(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSeedCategories installs the default taxonomy; it is a no-op for owners that have one.
func (s *Server) handleSeedCategories(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Taxonomy.SeedDefaults(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]int{"created": n}).Write(w)
}

type integrityResponse struct {
	Clean      bool                         `json:"clean"`
	Orphans    []core.Subcategory           `json:"orphans"`
	Duplicates map[string][][]core.Category `json:"duplicates"`
}

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Taxonomy.Integrity(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(integrityResponse{
		Clean:      report.Clean(),
		Orphans:    report.Orphans,
		Duplicates: report.Duplicates,
	}).Write(w)
}
