package amqp

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"saldo/internal/events"
)

// newPublishing wraps an event in a persistent JSON message. The event type is
// also carried as the AMQP message type so consumers can route without decoding.
func newPublishing(e events.Event) (amqp091.Publishing, error) {
	body, err := e.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, err
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    ts,
		Type:         string(e.Type),
		Body:         body,
	}, nil
}

func decodeDelivery(d amqp091.Delivery) (events.Event, error) {
	if d.ContentType != "" && d.ContentType != "application/json" {
		return events.Event{}, fmt.Errorf("unsupported content type %q", d.ContentType)
	}
	return events.FromJSON(d.Body)
}
