package storage

import (
	"context"

	"saldo/internal/core"
	"saldo/internal/storage/memory"
)

// Store is the full data store: every repository the services need, plus the
// global reads of the integrity audit. SQLiteRepository and memory.Store implement it.
type Store interface {
	InsertCategory(ctx context.Context, c core.Category) error
	GetCategory(ctx context.Context, id string) (core.Category, error)
	FindCategoryByName(ctx context.Context, owner, name string) (core.Category, error)
	ListCategories(ctx context.Context, owner string) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error
	AllCategories(ctx context.Context) ([]core.Category, error)
	ListOwners(ctx context.Context) ([]string, error)

	InsertSubcategory(ctx context.Context, s core.Subcategory) error
	GetSubcategory(ctx context.Context, id string) (core.Subcategory, error)
	FindSubcategoryByName(ctx context.Context, categoryID, name string) (core.Subcategory, error)
	ListSubcategories(ctx context.Context, owner string) ([]core.Subcategory, error)
	ListSubcategoriesByCategory(ctx context.Context, categoryID string) ([]core.Subcategory, error)
	DeleteSubcategory(ctx context.Context, id string) error
	AllSubcategories(ctx context.Context) ([]core.Subcategory, error)

	InsertTransaction(ctx context.Context, tx core.Transaction) error
	ListTransactions(ctx context.Context, f core.TransactionFilter, r core.Range) ([]core.Transaction, error)

	UpsertLimit(ctx context.Context, l core.Limit) (core.Limit, error)
	ListLimits(ctx context.Context, owner string) ([]core.Limit, error)
	DeleteLimitBySubcategory(ctx context.Context, owner, subcategoryID string) error

	InsertGoal(ctx context.Context, g core.Goal) error
	GetGoal(ctx context.Context, id string) (core.Goal, error)
	ListGoals(ctx context.Context, owner string) ([]core.Goal, error)
	DeleteGoal(ctx context.Context, id string) error
	AddContribution(ctx context.Context, id string, cents int64) (core.Goal, error)

	GetProfile(ctx context.Context, owner string) (core.Profile, error)
	UpsertProfile(ctx context.Context, p core.Profile) error

	Close() error
}

var (
	_ Store = (*SQLiteRepository)(nil)
	_ Store = (*memory.Store)(nil)
)
