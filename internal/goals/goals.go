// Package goals tracks savings goals and their contributions.
package goals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"saldo/internal/aggregate"
	"saldo/internal/core"
	"saldo/internal/events"
	applog "saldo/internal/log"
)

// Repository stores goals. AddContribution must update the current amount and
// the completion flag in a single store operation and return the updated row.
type Repository interface {
	InsertGoal(ctx context.Context, g core.Goal) error
	GetGoal(ctx context.Context, id string) (core.Goal, error)
	ListGoals(ctx context.Context, owner string) ([]core.Goal, error)
	DeleteGoal(ctx context.Context, id string) error
	AddContribution(ctx context.Context, id string, cents int64) (core.Goal, error)
}

type CreateInput struct {
	Owner      string
	Title      string
	Target     core.Money
	TargetDate core.Date
	Color      string
	Icon       string
}

type Service struct {
	repo   Repository
	events events.Publisher
}

func NewService(repo Repository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repo: repo, events: publisher}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (aggregate.GoalView, error) {
	if in.Target.Cents <= 0 {
		return aggregate.GoalView{}, core.ErrInvalidAmount
	}
	g := core.Goal{
		ID:         core.NewID(),
		Owner:      in.Owner,
		Title:      strings.TrimSpace(in.Title),
		Target:     in.Target,
		TargetDate: in.TargetDate,
		Color:      strings.TrimSpace(in.Color),
		Icon:       strings.TrimSpace(in.Icon),
	}
	if err := g.Validate(); err != nil {
		return aggregate.GoalView{}, err
	}
	if err := s.repo.InsertGoal(ctx, g); err != nil {
		return aggregate.GoalView{}, fmt.Errorf("insert goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal created",
		applog.FieldOwner, g.Owner,
		applog.FieldGoalID, g.ID,
		applog.FieldAmountCents, g.Target.Cents)
	s.publish(ctx, events.New(events.GoalChanged, g.Owner, g.ID))
	return aggregate.GoalView{Goal: g, Percent: aggregate.GoalProgress(g)}, nil
}

// Contribute adds amount to the goal's current value. The store applies the
// increment, so concurrent contributions are never lost.
func (s *Service) Contribute(ctx context.Context, owner, id string, amount core.Money) (aggregate.GoalView, error) {
	if amount.Cents <= 0 {
		return aggregate.GoalView{}, core.ErrInvalidAmount
	}
	before, err := s.owned(ctx, owner, id)
	if err != nil {
		return aggregate.GoalView{}, err
	}

	g, err := s.repo.AddContribution(ctx, id, amount.Cents)
	if err != nil {
		return aggregate.GoalView{}, fmt.Errorf("goal %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Goal contribution added",
		applog.FieldOwner, owner,
		applog.FieldGoalID, id,
		applog.FieldAmountCents, amount.Cents,
		applog.FieldOperation, applog.OpContribute)
	s.publish(ctx, events.New(events.GoalChanged, owner, id))
	if g.IsCompleted && !before.IsCompleted {
		s.publish(ctx, events.New(events.GoalCompleted, owner, id))
	}
	return aggregate.GoalView{Goal: g, Percent: aggregate.GoalProgress(g)}, nil
}

func (s *Service) List(ctx context.Context, owner string) ([]aggregate.GoalView, error) {
	goals, err := s.repo.ListGoals(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return aggregate.GoalViews(goals), nil
}

// Alerts returns the deadline notifications of owner's goals as of asOf.
func (s *Service) Alerts(ctx context.Context, owner string, asOf time.Time) ([]aggregate.Notification, error) {
	goals, err := s.repo.ListGoals(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return aggregate.GoalAlerts(goals, asOf), nil
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.owned(ctx, owner, id); err != nil {
		return err
	}
	if err := s.repo.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	s.publish(ctx, events.New(events.GoalChanged, owner, id))
	return nil
}

func (s *Service) owned(ctx context.Context, owner, id string) (core.Goal, error) {
	g, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
		}
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	if g.Owner != owner {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	return g, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to publish goal event",
			applog.FieldEventType, string(e.Type),
			applog.FieldError, err)
	}
}
