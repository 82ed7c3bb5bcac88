// Package limits keeps one monthly spending limit per (owner, subcategory).
package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saldo/internal/core"
	"saldo/internal/events"
	applog "saldo/internal/log"
)

// Repository stores limit rows. UpsertLimit must leave exactly one row per
// (owner, subcategory) and return the stored row.
type Repository interface {
	UpsertLimit(ctx context.Context, l core.Limit) (core.Limit, error)
	ListLimits(ctx context.Context, owner string) ([]core.Limit, error)
	DeleteLimitBySubcategory(ctx context.Context, owner, subcategoryID string) error
}

type CategoryReader interface {
	GetCategory(ctx context.Context, id string) (core.Category, error)
	GetSubcategory(ctx context.Context, id string) (core.Subcategory, error)
}

type Service struct {
	repo   Repository
	cats   CategoryReader
	events events.Publisher
}

func NewService(repo Repository, cats CategoryReader, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repo: repo, cats: cats, events: publisher}
}

// SetLimit creates or replaces the limit of a subcategory. A zero amount is
// kept as a row; aggregation reports it as 0% ok.
func (s *Service) SetLimit(ctx context.Context, owner, categoryID, subcategoryID string, amount core.Money) (core.Limit, error) {
	if err := s.Validate(ctx, owner, categoryID, subcategoryID, amount); err != nil {
		return core.Limit{}, err
	}

	stored, err := s.repo.UpsertLimit(ctx, core.Limit{
		ID:            core.NewID(),
		Owner:         owner,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		Amount:        amount,
	})
	if err != nil {
		return core.Limit{}, fmt.Errorf("upsert limit: %w", err)
	}

	slog.InfoContext(ctx, "Limit saved",
		applog.FieldOwner, owner,
		applog.FieldSubcategoryID, subcategoryID,
		applog.FieldAmountCents, amount.Cents)
	s.publish(ctx, events.New(events.LimitChanged, owner, subcategoryID))
	return stored, nil
}

// GetLimits returns the owner's limits keyed by subcategory id.
func (s *Service) GetLimits(ctx context.Context, owner string) (map[string]core.Money, error) {
	rows, err := s.repo.ListLimits(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	out := make(map[string]core.Money, len(rows))
	for _, l := range rows {
		out[l.SubcategoryID] = l.Amount
	}
	return out, nil
}

// List returns the owner's limit rows.
func (s *Service) List(ctx context.Context, owner string) ([]core.Limit, error) {
	rows, err := s.repo.ListLimits(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	return rows, nil
}

// ClearLimit removes the limit of a subcategory. Clearing a missing limit is not an error.
func (s *Service) ClearLimit(ctx context.Context, owner, subcategoryID string) error {
	if err := s.repo.DeleteLimitBySubcategory(ctx, owner, subcategoryID); err != nil {
		return fmt.Errorf("delete limit: %w", err)
	}
	s.publish(ctx, events.New(events.LimitChanged, owner, subcategoryID))
	return nil
}

// Validate runs the checks of SetLimit without writing: the amount must not be
// negative and the subcategory must belong to a category of owner.
func (s *Service) Validate(ctx context.Context, owner, categoryID, subcategoryID string, amount core.Money) error {
	if amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	return s.checkOwnership(ctx, owner, categoryID, subcategoryID)
}

func (s *Service) checkOwnership(ctx context.Context, owner, categoryID, subcategoryID string) error {
	cat, err := s.cats.GetCategory(ctx, categoryID)
	if errors.Is(err, core.ErrNotFound) || (err == nil && cat.Owner != owner) {
		return fmt.Errorf("category %s: %w", categoryID, core.ErrInvalidCategory)
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	sub, err := s.cats.GetSubcategory(ctx, subcategoryID)
	if errors.Is(err, core.ErrNotFound) || (err == nil && sub.CategoryID != cat.ID) {
		return fmt.Errorf("subcategory %s: %w", subcategoryID, core.ErrInvalidSubcategory)
	}
	if err != nil {
		return fmt.Errorf("get subcategory: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to publish limit event",
			applog.FieldOwner, e.Owner,
			applog.FieldError, err)
	}
}
