package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saldo/internal/core"
	applog "saldo/internal/log"
)

type defaultCategory struct {
	name          string
	kind          core.Kind
	icon          string
	subcategories []string
}

var defaultTaxonomy = []defaultCategory{
	{name: "Housing", kind: core.Expense, icon: "home", subcategories: []string{"Rent", "Condo fees", "Electricity"}},
	{name: "Food", kind: core.Expense, icon: "restaurant", subcategories: []string{"Groceries", "Restaurants and bars"}},
	{name: "Transport", kind: core.Expense, icon: "directions_car", subcategories: []string{"Fuel"}},
	{name: "Leisure", kind: core.Expense, icon: "movie"},
	{name: "Health", kind: core.Expense, icon: "favorite"},
	{name: "Salary", kind: core.Income, icon: "work", subcategories: []string{"Salary"}},
	{name: "Investments", kind: core.Income, icon: "savings"},
}

// SeedDefaults creates the system-default taxonomy for an owner. Categories or
// subcategories whose names already exist are left alone, so seeding twice is a no-op.
// It returns how many rows were created.
func (s *Service) SeedDefaults(ctx context.Context, owner string) (int, error) {
	created := 0
	for _, d := range defaultTaxonomy {
		cat, err := s.repo.FindCategoryByName(ctx, owner, d.name)
		switch {
		case errors.Is(err, core.ErrNotFound):
			cat = core.Category{
				ID:              core.NewID(),
				Owner:           owner,
				Name:            d.name,
				Kind:            d.kind,
				Icon:            d.icon,
				IsSystemDefault: true,
				CreatedAt:       s.now().UTC(),
			}
			if err := s.insertCategory(ctx, cat); err != nil {
				return created, err
			}
			created++
		case err != nil:
			return created, fmt.Errorf("find category: %w", err)
		}

		for _, name := range d.subcategories {
			_, err := s.repo.FindSubcategoryByName(ctx, cat.ID, name)
			if err == nil {
				continue
			}
			if !errors.Is(err, core.ErrNotFound) {
				return created, fmt.Errorf("find subcategory: %w", err)
			}
			sub := core.Subcategory{ID: core.NewID(), CategoryID: cat.ID, Name: name, IsSystemDefault: true}
			if err := s.insertSubcategory(ctx, owner, sub); err != nil {
				return created, err
			}
			created++
		}
	}

	slog.InfoContext(ctx, "Default taxonomy seeded",
		applog.FieldOwner, owner,
		"created", created)
	return created, nil
}
