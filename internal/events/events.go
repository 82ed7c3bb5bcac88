// Package events defines the domain events emitted after successful writes.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type Type string

const (
	TransactionRecorded Type = "transaction.recorded"
	CategoryChanged     Type = "category.changed"
	CategoryDeleted     Type = "category.deleted"
	LimitChanged        Type = "limit.changed"
	GoalChanged         Type = "goal.changed"
	GoalCompleted       Type = "goal.completed"
	ProfileChanged      Type = "profile.changed"
)

// Event is a lightweight notification; consumers re-fetch the rows they need.
type Event struct {
	Type      Type      `json:"type"`
	Owner     string    `json:"owner"`
	EntityID  string    `json:"entityId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func New(t Type, owner, entityID string) Event {
	return Event{Type: t, Owner: owner, EntityID: entityID, Timestamp: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event and rejects payloads without a type or owner.
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" || e.Owner == "" {
		return Event{}, errors.New("event missing type or owner")
	}
	return e, nil
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
