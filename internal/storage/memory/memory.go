// Package memory is an in-process data store used by tests and the
// DATA_BACKEND=memory mode. It enforces the same uniqueness rules as SQLite.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"saldo/internal/core"
)

type Store struct {
	mu           sync.RWMutex
	categories   map[string]core.Category
	subs         map[string]core.Subcategory
	transactions []core.Transaction
	limits       map[string]core.Limit // keyed by owner + "/" + subcategory id
	goals        map[string]core.Goal
	profiles     map[string]core.Profile
}

func New() *Store {
	return &Store{
		categories: make(map[string]core.Category),
		subs:       make(map[string]core.Subcategory),
		limits:     make(map[string]core.Limit),
		goals:      make(map[string]core.Goal),
		profiles:   make(map[string]core.Profile),
	}
}

func limitKey(owner, subID string) string { return owner + "/" + subID }

// Categories

func (s *Store) InsertCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Owner == c.Owner && strings.EqualFold(existing.Name, c.Name) {
			return fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
		}
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) FindCategoryByName(_ context.Context, owner, name string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Owner == owner && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func (s *Store) ListCategories(_ context.Context, owner string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return core.ErrNotFound
	}
	for _, existing := range s.categories {
		if existing.ID != c.ID && existing.Owner == c.Owner && strings.EqualFold(existing.Name, c.Name) {
			return fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
		}
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

// AllCategories returns every category of every owner.
func (s *Store) AllCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ListOwners returns every owner that has at least one category.
func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, c := range s.categories {
		if _, ok := seen[c.Owner]; ok {
			continue
		}
		seen[c.Owner] = struct{}{}
		out = append(out, c.Owner)
	}
	sort.Strings(out)
	return out, nil
}

// Subcategories

func (s *Store) InsertSubcategory(_ context.Context, sub core.Subcategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs {
		if existing.CategoryID == sub.CategoryID && strings.EqualFold(existing.Name, sub.Name) {
			return fmt.Errorf("subcategory %q: %w", sub.Name, core.ErrDuplicateName)
		}
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *Store) GetSubcategory(_ context.Context, id string) (core.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return core.Subcategory{}, core.ErrNotFound
	}
	return sub, nil
}

func (s *Store) FindSubcategoryByName(_ context.Context, categoryID, name string) (core.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.CategoryID == categoryID && strings.EqualFold(sub.Name, name) {
			return sub, nil
		}
	}
	return core.Subcategory{}, core.ErrNotFound
}

// ListSubcategories returns the subcategories of the owner's categories.
// Orphans are not owned by anyone and never show up here.
func (s *Store) ListSubcategories(_ context.Context, owner string) ([]core.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Subcategory
	for _, sub := range s.subs {
		if c, ok := s.categories[sub.CategoryID]; ok && c.Owner == owner {
			out = append(out, sub)
		}
	}
	sortSubs(out)
	return out, nil
}

func (s *Store) ListSubcategoriesByCategory(_ context.Context, categoryID string) ([]core.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Subcategory
	for _, sub := range s.subs {
		if sub.CategoryID == categoryID {
			out = append(out, sub)
		}
	}
	sortSubs(out)
	return out, nil
}

func (s *Store) DeleteSubcategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.subs, id)
	return nil
}

// AllSubcategories returns every subcategory, orphans included.
func (s *Store) AllSubcategories(_ context.Context) ([]core.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Subcategory, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sortSubs(out)
	return out, nil
}

func sortSubs(subs []core.Subcategory) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Name != subs[j].Name {
			return subs[i].Name < subs[j].Name
		}
		return subs[i].ID < subs[j].ID
	})
}

// Transactions

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx)
	return nil
}

// ListTransactions returns matching rows newest first: date desc, then createdAt desc.
func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter, r core.Range) ([]core.Transaction, error) {
	s.mu.RLock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if r.Offset > 0 {
		if r.Offset >= len(out) {
			return nil, nil
		}
		out = out[r.Offset:]
	}
	if r.Limit > 0 && len(out) > r.Limit {
		out = out[:r.Limit]
	}
	return out, nil
}

// Limits

// UpsertLimit inserts or replaces the single limit row of (owner, subcategory).
// The stored row keeps its original id.
func (s *Store) UpsertLimit(_ context.Context, l core.Limit) (core.Limit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := limitKey(l.Owner, l.SubcategoryID)
	if existing, ok := s.limits[key]; ok {
		l.ID = existing.ID
	}
	s.limits[key] = l
	return l, nil
}

func (s *Store) ListLimits(_ context.Context, owner string) ([]core.Limit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Limit
	for _, l := range s.limits {
		if l.Owner == owner {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubcategoryID < out[j].SubcategoryID })
	return out, nil
}

// DeleteLimitBySubcategory is a no-op when no row exists.
func (s *Store) DeleteLimitBySubcategory(_ context.Context, owner, subcategoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limits, limitKey(owner, subcategoryID))
	return nil
}

// Goals

func (s *Store) InsertGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = g
	return nil
}

func (s *Store) GetGoal(_ context.Context, id string) (core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, core.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, owner string) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.Owner == owner {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

// AddContribution adds cents to the goal and recomputes completion under one lock.
func (s *Store) AddContribution(_ context.Context, id string, cents int64) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, core.ErrNotFound
	}
	g.Current.Cents += cents
	g.IsCompleted = g.Current.Cents >= g.Target.Cents
	s.goals[id] = g
	return g, nil
}

// Profiles

func (s *Store) GetProfile(_ context.Context, owner string) (core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[owner]
	if !ok {
		return core.Profile{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpsertProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Owner] = p
	return nil
}

func (s *Store) Close() error { return nil }
