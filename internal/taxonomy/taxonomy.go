// Package taxonomy owns the per-owner category/subcategory tree.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"saldo/internal/core"
	"saldo/internal/events"
	applog "saldo/internal/log"
)

// Repository is the slice of the data store the taxonomy needs.
// Lookups return core.ErrNotFound for missing rows; inserts return
// core.ErrDuplicateName when a uniqueness constraint trips.
type Repository interface {
	InsertCategory(ctx context.Context, c core.Category) error
	GetCategory(ctx context.Context, id string) (core.Category, error)
	FindCategoryByName(ctx context.Context, owner, name string) (core.Category, error)
	ListCategories(ctx context.Context, owner string) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error

	InsertSubcategory(ctx context.Context, s core.Subcategory) error
	GetSubcategory(ctx context.Context, id string) (core.Subcategory, error)
	FindSubcategoryByName(ctx context.Context, categoryID, name string) (core.Subcategory, error)
	ListSubcategories(ctx context.Context, owner string) ([]core.Subcategory, error)
	ListSubcategoriesByCategory(ctx context.Context, categoryID string) ([]core.Subcategory, error)
	DeleteSubcategory(ctx context.Context, id string) error

	DeleteLimitBySubcategory(ctx context.Context, owner, subcategoryID string) error
}

// CategoryTree is a category with its subcategories, as listed to the owner.
type CategoryTree struct {
	core.Category
	Subcategories []core.Subcategory `json:"subcategories"`
}

type Service struct {
	repo   Repository
	events events.Publisher
	now    func() time.Time
}

func NewService(repo Repository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repo: repo, events: publisher, now: time.Now}
}

// CreateCategory inserts a category unless the owner already has one with that name.
func (s *Service) CreateCategory(ctx context.Context, owner, name string, kind core.Kind, icon string) (core.Category, error) {
	c := core.Category{
		ID:        core.NewID(),
		Owner:     owner,
		Name:      normalizeName(name),
		Kind:      kind,
		Icon:      strings.TrimSpace(icon),
		CreatedAt: s.now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return c, s.insertCategory(ctx, c)
}

func (s *Service) insertCategory(ctx context.Context, c core.Category) error {
	if err := s.ensureCategoryNameFree(ctx, c.Owner, c.Name, ""); err != nil {
		return err
	}
	if err := s.repo.InsertCategory(ctx, c); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	slog.InfoContext(ctx, "Category created",
		applog.FieldOwner, c.Owner,
		applog.FieldCategoryID, c.ID,
		applog.FieldKind, string(c.Kind))
	s.publish(ctx, events.New(events.CategoryChanged, c.Owner, c.ID))
	return nil
}

// CreateSubcategory adds a subcategory under one of the owner's categories.
func (s *Service) CreateSubcategory(ctx context.Context, owner, categoryID, name string) (core.Subcategory, error) {
	cat, err := s.ownedCategory(ctx, owner, categoryID)
	if err != nil {
		return core.Subcategory{}, err
	}
	sub := core.Subcategory{ID: core.NewID(), CategoryID: cat.ID, Name: normalizeName(name)}
	if err := sub.Validate(); err != nil {
		return core.Subcategory{}, err
	}
	return sub, s.insertSubcategory(ctx, owner, sub)
}

func (s *Service) insertSubcategory(ctx context.Context, owner string, sub core.Subcategory) error {
	_, err := s.repo.FindSubcategoryByName(ctx, sub.CategoryID, sub.Name)
	switch {
	case err == nil:
		return fmt.Errorf("subcategory %q: %w", sub.Name, core.ErrDuplicateName)
	case !errors.Is(err, core.ErrNotFound):
		return fmt.Errorf("find subcategory: %w", err)
	}
	if err := s.repo.InsertSubcategory(ctx, sub); err != nil {
		return fmt.Errorf("insert subcategory: %w", err)
	}
	slog.InfoContext(ctx, "Subcategory created",
		applog.FieldOwner, owner,
		applog.FieldCategoryID, sub.CategoryID,
		applog.FieldSubcategoryID, sub.ID)
	s.publish(ctx, events.New(events.CategoryChanged, owner, sub.CategoryID))
	return nil
}

// RenameCategory changes name and icon of a user-defined category.
func (s *Service) RenameCategory(ctx context.Context, owner, id, name, icon string) (core.Category, error) {
	cat, err := s.ownedCategory(ctx, owner, id)
	if err != nil {
		return core.Category{}, err
	}
	if cat.IsSystemDefault {
		return core.Category{}, fmt.Errorf("category %q: %w", cat.Name, core.ErrImmutable)
	}
	cat.Name = normalizeName(name)
	cat.Icon = strings.TrimSpace(icon)
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.ensureCategoryNameFree(ctx, owner, cat.Name, cat.ID); err != nil {
		return core.Category{}, err
	}
	if err := s.repo.UpdateCategory(ctx, cat); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.publish(ctx, events.New(events.CategoryChanged, owner, cat.ID))
	return cat, nil
}

// DeleteCategory removes a category and everything hanging off it, dependents
// first: limit rows of each subcategory, then the subcategories, then the
// category itself. Each step must succeed before the next one runs, so a
// partial failure never leaves subcategories without a parent. Transactions
// are kept; aggregation reports them as Uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, owner, id string) error {
	cat, err := s.ownedCategory(ctx, owner, id)
	if err != nil {
		return err
	}
	if cat.IsSystemDefault {
		return fmt.Errorf("category %q: %w", cat.Name, core.ErrImmutable)
	}

	subs, err := s.repo.ListSubcategoriesByCategory(ctx, cat.ID)
	if err != nil {
		return fmt.Errorf("list subcategories: %w", err)
	}
	for _, sub := range subs {
		if err := s.deleteSubcategoryRows(ctx, owner, sub.ID); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteCategory(ctx, cat.ID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted",
		applog.FieldOwner, owner,
		applog.FieldCategoryID, cat.ID,
		"subcategories", len(subs))
	s.publish(ctx, events.New(events.CategoryDeleted, owner, cat.ID))
	return nil
}

// DeleteSubcategory removes one subcategory and its limit row.
func (s *Service) DeleteSubcategory(ctx context.Context, owner, id string) error {
	sub, err := s.repo.GetSubcategory(ctx, id)
	if err != nil {
		return fmt.Errorf("subcategory %s: %w", id, err)
	}
	if _, err := s.ownedCategory(ctx, owner, sub.CategoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("subcategory %s: %w", id, core.ErrNotFound)
		}
		return err
	}
	if sub.IsSystemDefault {
		return fmt.Errorf("subcategory %q: %w", sub.Name, core.ErrImmutable)
	}
	if err := s.deleteSubcategoryRows(ctx, owner, sub.ID); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.CategoryChanged, owner, sub.CategoryID))
	return nil
}

func (s *Service) deleteSubcategoryRows(ctx context.Context, owner, subID string) error {
	if err := s.repo.DeleteLimitBySubcategory(ctx, owner, subID); err != nil {
		return fmt.Errorf("delete limit of subcategory %s: %w", subID, err)
	}
	if err := s.repo.DeleteSubcategory(ctx, subID); err != nil {
		return fmt.Errorf("delete subcategory %s: %w", subID, err)
	}
	return nil
}

// ListCategories returns the owner's categories by name, each with its subcategories.
func (s *Service) ListCategories(ctx context.Context, owner string) ([]CategoryTree, error) {
	cats, err := s.repo.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	subs, err := s.repo.ListSubcategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}

	byCategory := make(map[string][]core.Subcategory, len(cats))
	for _, sub := range subs {
		byCategory[sub.CategoryID] = append(byCategory[sub.CategoryID], sub)
	}
	trees := make([]CategoryTree, 0, len(cats))
	for _, c := range cats {
		children := byCategory[c.ID]
		sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
		trees = append(trees, CategoryTree{Category: c, Subcategories: children})
	}
	sort.Slice(trees, func(i, j int) bool { return trees[i].Name < trees[j].Name })
	return trees, nil
}

// Integrity runs VerifyIntegrity over the owner's stored taxonomy.
func (s *Service) Integrity(ctx context.Context, owner string) (Report, error) {
	cats, err := s.repo.ListCategories(ctx, owner)
	if err != nil {
		return Report{}, fmt.Errorf("list categories: %w", err)
	}
	subs, err := s.repo.ListSubcategories(ctx, owner)
	if err != nil {
		return Report{}, fmt.Errorf("list subcategories: %w", err)
	}
	return VerifyIntegrity(cats, subs), nil
}

func (s *Service) ownedCategory(ctx context.Context, owner, id string) (core.Category, error) {
	cat, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("category %s: %w", id, err)
	}
	if cat.Owner != owner {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return cat, nil
}

func (s *Service) ensureCategoryNameFree(ctx context.Context, owner, name, exceptID string) error {
	existing, err := s.repo.FindCategoryByName(ctx, owner, name)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find category: %w", err)
	case existing.ID == exceptID:
		return nil
	default:
		return fmt.Errorf("category %q: %w", name, core.ErrDuplicateName)
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to publish taxonomy event",
			applog.FieldEventType, string(e.Type),
			applog.FieldOwner, e.Owner,
			applog.FieldError, err)
	}
}

// normalizeName trims and collapses inner whitespace. Names compare case-insensitively.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
